package app

import (
	"fmt"
	"strings"
)

// NoProductSentinel is the token the model is told to answer when nothing matches.
const NoProductSentinel = "NO_PRODUCT_FOUND"

const maxCandidates = 3

// BuildInstruction returns the fixed task description sent with the
// reference file at the start of every conversation.
func BuildInstruction(referenceName string) string {
	return fmt.Sprintf(
		"The uploaded file %s contains a list of products and the amount of plastic chemicals they contain. "+
			"Always stick to using this source to extract information. "+
			"The user will upload an image, you should try to classify what product it is "+
			"and return the top %d best matching products. "+
			"If you cannot find it, please say %s, do not return irrelevant product names. "+
			"The format of the response should just be a newline separated list of the product names "+
			"and no other content.",
		referenceName, maxCandidates, NoProductSentinel,
	)
}

// ParseCandidates splits a model reply into candidate product names in the
// order the model ranked them. Blank lines and the no-match token are dropped.
func ParseCandidates(reply string) []string {
	var candidates []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == NoProductSentinel {
			continue
		}
		candidates = append(candidates, line)
	}
	return candidates
}
