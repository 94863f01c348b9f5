// Package e2e runs the question-answering pipeline over a generated multi-format corpus.
package e2e

import (
	"fmt"
	"strings"
)

// Topic is one generated document: a title, a signature phrase that appears
// only in it, and its body text.
type Topic struct {
	Name      string
	Title     string
	Signature string
	Body      string
}

// QuestionCase is a question whose supporting chunks must include Source.
type QuestionCase struct {
	Question    string
	Source      string
	Description string
}

// Corpus holds generated topics and the questions asked against them.
type Corpus struct {
	Topics    []Topic
	Questions []QuestionCase
}

var topics = []struct{ title, signature, body string }{
	{"Warranty Terms", "warranty coverage period", "The warranty coverage period is twenty four months from purchase. Claims require the original receipt."},
	{"Battery Care", "lithium battery storage", "Keep the lithium battery storage temperature between ten and twenty five degrees. Charge to half before storing."},
	{"Firmware Updates", "firmware update procedure", "The firmware update procedure downloads an image and reboots twice. Do not unplug during the update."},
	{"Factory Reset", "factory reset button", "Hold the factory reset button for ten seconds until the lamp blinks orange."},
	{"Wireless Pairing", "bluetooth pairing mode", "Enter bluetooth pairing mode from the settings menu. Pairing times out after two minutes."},
	{"Cleaning Guide", "cleaning microfiber cloth", "Use a dry cleaning microfiber cloth on the screen. Avoid solvents and sprays."},
	{"Shipping Policy", "international shipping rates", "International shipping rates depend on parcel weight and destination zone."},
	{"Returns", "return merchandise authorization", "Request a return merchandise authorization number before sending any parcel back."},
	{"Invoice Questions", "invoice billing address", "The invoice billing address must match the card holder address on file."},
	{"Solar Panels", "photovoltaic panel efficiency", "Photovoltaic panel efficiency drops as cell temperature rises above twenty five degrees."},
	{"Heat Pumps", "heat pump defrost cycle", "A heat pump defrost cycle reverses the refrigerant flow to melt ice on the outdoor coil."},
	{"Water Filters", "carbon filter cartridge", "Replace the carbon filter cartridge every six months or after four hundred litres."},
	{"Garden Irrigation", "drip irrigation emitters", "Drip irrigation emitters deliver water slowly at the root zone and reduce evaporation."},
	{"Composting", "compost nitrogen carbon", "Balance compost nitrogen carbon inputs with greens and browns in equal volume."},
	{"Tomato Growing", "tomato blossom rot", "Tomato blossom rot comes from uneven watering and calcium shortage in the fruit."},
	{"Bread Baking", "sourdough starter feeding", "Sourdough starter feeding uses equal weights of flour and water once a day."},
	{"Coffee Brewing", "espresso extraction time", "Espresso extraction time should land between twenty five and thirty seconds."},
	{"Cycling Safety", "bicycle brake pads", "Inspect bicycle brake pads monthly and replace them when the grooves disappear."},
	{"Running Training", "interval training sessions", "Interval training sessions alternate fast repeats with slow recovery jogs."},
	{"Sleep Hygiene", "circadian rhythm light", "Morning daylight anchors the circadian rhythm light signal for the whole day."},
	{"Tax Filing", "quarterly estimated taxes", "Freelancers pay quarterly estimated taxes in April, June, September, and January."},
	{"Mortgage Basics", "fixed rate mortgage", "A fixed rate mortgage keeps the same interest for the full loan term."},
	{"Retirement Saving", "pension contribution match", "Many employers offer a pension contribution match up to five percent of salary."},
	{"Car Maintenance", "engine oil viscosity", "Check the manual for the engine oil viscosity grade before every oil change."},
	{"Tire Pressure", "tire pressure gauge", "Measure with a tire pressure gauge when the tires are cold in the morning."},
	{"Home Insulation", "attic insulation thickness", "Attic insulation thickness of thirty centimetres cuts heating loss noticeably."},
	{"Electrical Safety", "circuit breaker tripping", "Frequent circuit breaker tripping signals an overloaded circuit or a fault."},
	{"Plumbing Leaks", "pipe leak sealant", "A pipe leak sealant tape is only a temporary fix until the joint is replaced."},
	{"Pet Nutrition", "puppy feeding schedule", "A puppy feeding schedule of three small meals a day suits most breeds."},
	{"Bird Watching", "migratory bird sightings", "Record migratory bird sightings with date, place, and weather conditions."},
}

// BuildCorpus returns n generated topics (at most the number of known topics)
// and one question per topic built from its signature phrase.
func BuildCorpus(n int, exts []string) *Corpus {
	if n > len(topics) {
		n = len(topics)
	}
	c := &Corpus{}
	for i := 0; i < n; i++ {
		t := topics[i]
		name := fmt.Sprintf("topic-%02d%s", i+1, exts[i%len(exts)])
		c.Topics = append(c.Topics, Topic{Name: name, Title: t.title, Signature: t.signature, Body: t.body})
		c.Questions = append(c.Questions, QuestionCase{
			Question:    "What about " + t.signature + "?",
			Source:      name,
			Description: fmt.Sprintf("%s answers from %s", strings.ReplaceAll(t.signature, " ", "_"), name),
		})
	}
	return c
}

// Text returns the full text of the topic as it is written into its file.
func (t Topic) Text() string {
	return t.Title + "\n\n" + t.Body
}
