package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"

	"roomcast/errors"
)

//go:embed censored/*.txt
var censoredFS embed.FS

// Dictionary is the parsed word-list shipped with the binary, one file per
// language.
type Dictionary struct {
	Words     []string
	Languages []string
}

// LoadDictionary reads every embedded .txt file under censored/. The file
// name carries the declared language ("fr.txt" -> "fr"); the content is
// additionally run through language detection so a mislabeled file shows up
// in the logs instead of going unnoticed.
func LoadDictionary(log *slog.Logger) (*Dictionary, error) {
	entries, err := fs.ReadDir(censoredFS, "censored")
	if err != nil {
		return nil, err
	}

	unique := make(map[string]struct{})
	var languages []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".txt")
		languages = append(languages, lang)

		data, err := censoredFS.ReadFile("censored/" + entry.Name())
		if err != nil {
			return nil, err
		}

		var fileWords []string
		// Scanner handles \n and \r\n endings alike.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			fileWords = append(fileWords, word)
			unique[word] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}

		audit(log, lang, fileWords)
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	return &Dictionary{Words: words, Languages: languages}, nil
}

// audit compares the declared language with what detection sees.
func audit(log *slog.Logger, declared string, words []string) {
	if len(words) == 0 {
		return
	}
	info := whatlanggo.Detect(strings.Join(words, " "))
	detected := info.Lang.Iso6391()
	if detected != "" && detected != declared {
		log.Warn(fmt.Sprintf("Dictionary %s.txt looks like %q (confidence %.2f)",
			declared, detected, info.Confidence))
		return
	}
	log.Info(fmt.Sprintf("%d censored words loaded [%s]", len(words), declared))
}
