// Package preloader loads the numbers list and the message text at startup
package preloader

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-while/go-numfeed/internal/models"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// LoadNumbers reads one number per line, order preserved.
// A missing or unreadable file gives an empty list.
func LoadNumbers(filePath, charset string) []string {
	lines, err := readLines(filePath, charset, 0)
	if err != nil {
		log.Printf("PreLoader: Warning: no numbers loaded from %s: %v", filePath, err)
		return []string{}
	}
	log.Printf("PreLoader: Loaded %d numbers from %s", len(lines), filePath)
	return lines
}

// LoadMessage returns the first line of filePath, or models.NoMessageFound
// when the file is missing or empty.
func LoadMessage(filePath, charset string) string {
	lines, err := readLines(filePath, charset, 1)
	if err != nil {
		log.Printf("PreLoader: Warning: no message loaded from %s: %v", filePath, err)
		return models.NoMessageFound
	}
	if len(lines) == 0 {
		return models.NoMessageFound
	}
	return lines[0]
}

// readLines returns up to limit lines (all when limit <= 0).
// Line endings (\n or \r\n) are stripped and a trailing newline does not add an empty line.
// Lines have no length cap.
func readLines(filePath, charset string, limit int) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("preloader failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	reader, err := decodingReader(file, charset)
	if err != nil {
		log.Printf("PreLoader: Warning: %v, reading %s as utf-8", err, filePath)
		reader = file
	}

	br := bufio.NewReader(reader)
	lines := []string{}
	for limit <= 0 || len(lines) < limit {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			lines = append(lines, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("preloader failed to read %s: %w", filePath, err)
		}
	}
	return lines, nil
}

// decodingReader wraps r so it yields UTF-8
func decodingReader(r io.Reader, charset string) (io.Reader, error) {
	charset = normalizeCharsetName(charset)
	if charset == "" || charset == "utf-8" {
		return r, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset: %s", charset)
	}
	if enc == nil {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// normalizeCharsetName maps common aliases to htmlindex names
func normalizeCharsetName(charset string) string {
	normalized := strings.ToLower(strings.TrimSpace(charset))

	switch normalized {
	case "utf-8", "utf8":
		return "utf-8"
	case "gbk", "cp936", "windows-936":
		return "gbk"
	case "gb2312", "gb_2312", "euc-cn":
		return "gb2312"
	case "gb18030":
		return "gb18030"
	case "big5", "big-5", "cp950":
		return "big5"
	case "iso-8859-1", "iso8859-1", "iso_8859-1", "latin-1", "latin1":
		return "iso-8859-1"
	case "windows-1252", "cp1252", "win1252":
		return "windows-1252"
	case "us-ascii", "ascii":
		return "windows-1252" // superset of ASCII
	default:
		return normalized
	}
}
