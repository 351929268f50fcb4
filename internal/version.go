package internal

import (
	"fmt"
	"strconv"
	"time"
)

var (
	commitVersion string = "v0.3.0-dev" // Should be updated during build
	commitDate    string = "1756000000" // commitDate in Epoch seconds (can be filled/updated in during build)
)

// GetVersion returns the build version with the commit date appended when set.
func GetVersion() string {
	seconds, _ := strconv.Atoi(commitDate)
	msg := commitVersion
	if commitDate != "" {
		t := time.Unix(int64(seconds), 0)
		msg += fmt.Sprintf(", date: %s", t.Format("2006-01-02"))
	}
	return msg
}

// ShortVersion is the bare version tag, as sent in response headers.
func ShortVersion() string {
	return commitVersion
}

// PrintVersion prints the version to stdout.
func PrintVersion() {
	fmt.Printf("%s\n", GetVersion())
}
