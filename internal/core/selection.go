package core

import (
	"path"
	"regexp"
	"strings"
)

// Selection decides which listed archive counts as the latest.
type Selection string

const (
	// SelectListing takes the last archive in listing order.
	SelectListing Selection = "listing"

	// SelectFilename takes the archive with the newest timestamp embedded in
	// its file name. Names without a timestamp rank below names with one;
	// ties go to the later listing position.
	SelectFilename Selection = "filename"
)

// ParseSelection converts a config string, defaulting to SelectListing.
func ParseSelection(s string) Selection {
	if Selection(strings.ToLower(strings.TrimSpace(s))) == SelectFilename {
		return SelectFilename
	}
	return SelectListing
}

var digitRun = regexp.MustCompile(`\d+`)

// Pick returns the latest archive URL, or false when urls is empty.
func (s Selection) Pick(urls []string) (string, bool) {
	if len(urls) == 0 {
		return "", false
	}
	if s != SelectFilename {
		return urls[len(urls)-1], true
	}

	best, bestStamp := len(urls)-1, ""
	for i, u := range urls {
		if stamp := nameTimestamp(u); stamp >= bestStamp {
			best, bestStamp = i, stamp
		}
	}
	return urls[best], true
}

// nameTimestamp returns the last 12 or 14 digit run of the file name,
// widened to 14 digits, or "" if there is none. NEMweb names end with the
// publish time, e.g. ..._HH_202401010030_20240101003021.zip.
func nameTimestamp(u string) string {
	runs := digitRun.FindAllString(path.Base(u), -1)
	for i := len(runs) - 1; i >= 0; i-- {
		switch len(runs[i]) {
		case 14:
			return runs[i]
		case 12:
			return runs[i] + "00"
		}
	}
	return ""
}
