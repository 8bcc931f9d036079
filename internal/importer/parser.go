package importer

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Markdown card format: a card starts at a "Q:" line, its answer at "A:",
// optional source material at "C:" and optional comma-separated tags at "T:".
// Blocks run until the next prefix; "---" separates cards explicitly.
const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	tagsPrefix     = "T:"
	separator      = "---"
)

// ParsedCard is one card as it appears in a source file, before it is given
// an identity in the store.
type ParsedCard struct {
	Question string
	Answer   string
	Context  string
	Tags     []string
}

type parseState int

const (
	seeking parseState = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads the file at path and extracts all cards.
func ParseFile(path string) ([]ParsedCard, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from r and extracts all cards. Text outside any card is
// ignored; a card without a question line is dropped.
func Parse(r io.Reader) ([]ParsedCard, error) {
	scanner := bufio.NewScanner(r)
	var cards []ParsedCard
	var current ParsedCard
	var block []string
	state := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch state {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingContext:
			current.Context = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Question != "" {
			cards = append(cards, current)
		}
		current = ParsedCard{}
		state = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			finishCard()
			continue
		}

		switch {
		case strings.HasPrefix(line, questionPrefix):
			flushBlock()
			// A new question always starts a new card.
			if state != seeking {
				finishCard()
			}
			state = readingQuestion
			block = append(block, trimPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			state = readingAnswer
			block = append(block, trimPrefix(line, answerPrefix))
		case strings.HasPrefix(line, contextPrefix):
			flushBlock()
			state = readingContext
			block = append(block, trimPrefix(line, contextPrefix))
		case strings.HasPrefix(line, tagsPrefix):
			flushBlock()
			state = seeking
			current.Tags = parseTags(trimPrefix(line, tagsPrefix))
		default:
			if state != seeking {
				block = append(block, line)
			}
		}
	}
	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// trimPrefix strips the field prefix and at most one following space, so
// "Q: text" and "Q:text" both yield "text" while deeper indentation is kept.
func trimPrefix(line, prefix string) string {
	content := line[len(prefix):]
	if strings.HasPrefix(content, " ") {
		content = content[1:]
	}
	return content
}

func parseTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
