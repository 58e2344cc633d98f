package events

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"alertlogic-events/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

func jsVarRegex(name string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`var\s+%s\s*=\s*'(.*?)';`, name))
}

var (
	sourceAddrRegex     = jsVarRegex("source_addr")
	destAddrRegex       = jsVarRegex("dest_addr")
	sourcePortRegex     = jsVarRegex("source_port")
	destPortRegex       = jsVarRegex("dest_port")
	signatureNameRegex  = jsVarRegex("signature_name")
	sensorRegex         = jsVarRegex("sensor")
	protocolRegex       = jsVarRegex("protocol")
	classificationRegex = jsVarRegex("classification")
	severityRegex       = jsVarRegex("severity")
)

func jsVar(page string, regex *regexp.Regexp) string {
	groups := regex.FindStringSubmatch(page)
	if groups == nil {
		return NoneParsed
	}
	return groups[1]
}

// ParseMetadata reads the event fields the console page assigns to inline
// javascript variables, plus the engine time cell. Every field is looked up
// on its own, a missing field is NoneParsed.
func ParseMetadata(page string) Metadata {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		doc = nil
	}
	return parseMetadata(page, doc)
}

func parseMetadata(page string, doc *goquery.Document) Metadata {
	meta := Metadata{
		SourceAddr:     jsVar(page, sourceAddrRegex),
		DestAddr:       jsVar(page, destAddrRegex),
		SourcePort:     jsVar(page, sourcePortRegex),
		DestPort:       jsVar(page, destPortRegex),
		SignatureName:  jsVar(page, signatureNameRegex),
		Sensor:         jsVar(page, sensorRegex),
		Protocol:       jsVar(page, protocolRegex),
		Classification: jsVar(page, classificationRegex),
		Severity:       jsVar(page, severityRegex),
		EngineTime:     NoneParsed,
	}
	if doc != nil {
		cell := htmlutil.FindLabelledCell(doc, "Engine Time:")
		if cell.Length() > 0 {
			meta.EngineTime = strings.TrimSpace(cell.Text())
		}
	}
	return meta
}

// signatureID returns the sid of the first link to the signature page.
func signatureID(doc *goquery.Document) (string, bool) {
	var sid string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, err := url.Parse(a.AttrOr("href", ""))
		if err != nil || path.Base(href.Path) != "signature.php" {
			return true
		}
		value := href.Query().Get("sid")
		if value == "" || strings.Trim(value, "0123456789") != "" {
			return true
		}
		sid = value
		return false
	})
	return sid, sid != ""
}

// ParseSignatureRule reads the rule of a signature page.
func ParseSignatureRule(page string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", false
	}
	raw, ok := htmlutil.LabelledCell(doc, "Signature Content")
	if !ok {
		return "", false
	}
	return htmlutil.CleanRule(raw), true
}
