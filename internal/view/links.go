package view

import (
	"fmt"
	"net/url"
	"strings"
)

// logSearchRange is the relative search window in seconds (eight hours).
const logSearchRange = 28800

// LogSearchLink links to a log search for filter. An empty base disables links.
func LogSearchLink(base, filter string) string {
	if base == "" {
		return ""
	}
	q := strings.ReplaceAll(url.QueryEscape(filter), "+", "%20")
	return fmt.Sprintf("%s?rangetype=relative&relative=%d&q=%s", base, logSearchRange, q)
}

func checkerLogFilter(slug string, teamID, tick int) string {
	return fmt.Sprintf("checker:/%s:.*/ AND team:%d AND tick:%d", slug, teamID, tick)
}

func serviceLogFilter(slug string, netNumber, tick int) string {
	return fmt.Sprintf("service:%s AND team:%d AND tick:%d", slug, netNumber, tick)
}
