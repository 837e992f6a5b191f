package graph

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

// processUnit is one extraction-sized slice of an episode. start and end are
// sentence indices into the split content.
type processUnit struct {
	id        string
	episodeID string
	start     int
	end       int
	text      string
}

// transformIntoUnits splits episode content into sentence-aligned chunks of
// at most maxTokens tokens. A single sentence above the budget becomes its
// own oversized unit rather than being cut mid-sentence.
func transformIntoUnits(
	text string,
	episodeID string,
	encoder string,
	maxTokens int,
) ([]processUnit, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []processUnit
	chunkStart := -1
	chunkEnd := -1
	chunkTokens := 0

	flushChunk := func() error {
		if chunkStart < 0 || chunkEnd <= chunkStart {
			return nil
		}
		uID, err := gonanoid.New()
		if err != nil {
			return err
		}
		chunks = append(chunks, processUnit{
			id:        uID,
			episodeID: episodeID,
			start:     chunkStart,
			end:       chunkEnd,
			text:      strings.TrimSpace(strings.Join(sentences[chunkStart:chunkEnd], " ")),
		})
		chunkStart = -1
		chunkEnd = -1
		chunkTokens = 0
		return nil
	}

	for i, sentence := range sentences {
		tokens := len(enc.Encode(sentence, nil, nil)) + 1

		if chunkStart >= 0 && chunkTokens+tokens > maxTokens {
			if err := flushChunk(); err != nil {
				return nil, err
			}
		}
		if chunkStart < 0 {
			chunkStart = i
		}
		chunkEnd = i + 1
		chunkTokens += tokens
	}

	if err := flushChunk(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// splitIntoSentences breaks text on sentence-ending punctuation and on line
// breaks, which keeps conversation turns ("user: ...") in separate sentences.
func splitIntoSentences(text string) []string {
	var sentences []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var current strings.Builder
		runes := []rune(line)
		for i, r := range runes {
			current.WriteRune(r)
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			// Sentence ends only when followed by whitespace or EOL, so
			// "order #42.5" or "v1.2" stays intact.
			if i+1 == len(runes) || runes[i+1] == ' ' || runes[i+1] == '\t' {
				sentence := strings.TrimSpace(current.String())
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				current.Reset()
			}
		}
		if rest := strings.TrimSpace(current.String()); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	return sentences
}
