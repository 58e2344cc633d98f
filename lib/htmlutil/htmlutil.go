package htmlutil

import (
	"bytes"
	"html"
	"strings"

	"alertlogic-events/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
)

func GetText(node *nethtml.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *nethtml.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == nethtml.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var ruleCleaner = strings.NewReplacer(
	"<br />", "",
	"<br/>", "",
	"<br>", "",
	`\"`, `"`,
)

// CleanRule turns the html of a signature rule cell into the plain rule
// text: entities are unescaped, line breaks and escaped quotes removed.
func CleanRule(raw string) string {
	return strings.TrimSpace(html.UnescapeString(ruleCleaner.Replace(raw)))
}

// FindLabelledCell finds the table cell that follows a header or data cell
// whose text is label, like `<th>Signature Content</th><td>...</td>`. The
// selection is empty when no such cell exists.
func FindLabelledCell(doc *goquery.Document, label string) *goquery.Selection {
	found := doc.Selection.Slice(0, 0)
	doc.Find("th, td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := textutil.CollapseWhitespace(GetText(cell.Get(0)))
		if text != label {
			return true
		}
		next := cell.NextFiltered("td")
		if next.Length() == 0 {
			return true
		}
		found = next
		return false
	})
	return found
}

// LabelledCell returns the inner html of the cell found by FindLabelledCell.
func LabelledCell(doc *goquery.Document, label string) (string, bool) {
	cell := FindLabelledCell(doc, label)
	if cell.Length() == 0 {
		return "", false
	}
	inner, err := cell.Html()
	if err != nil {
		return "", false
	}
	return inner, true
}
