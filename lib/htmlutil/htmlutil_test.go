package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanRule(t *testing.T) {
	cases := []struct {
		raw    string
		expect string
	}{
		{
			raw:    `alert tcp any any -&gt; any 80 (msg:\"WEB admin\";<br />content:&quot;/admin&quot;;)`,
			expect: `alert tcp any any -> any 80 (msg:"WEB admin";content:"/admin";)`,
		},
		{raw: "  plain rule  ", expect: "plain rule"},
		{raw: "", expect: ""},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, CleanRule(test.raw))
	}
}

const signaturePage = `<html><body>
<table>
<tr><th>Signature Name</th><td>WEB-MISC admin access</td></tr>
<tr><th>Signature
    Content</th>
    <td>alert tcp any any -&gt; any 80<br />(msg:"admin";)</td></tr>
</table>
</body></html>`

func TestLabelledCell(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(signaturePage))
	require.NoError(t, err)

	cell, ok := LabelledCell(doc, "Signature Content")
	require.True(t, ok)
	require.Equal(t, `alert tcp any any -&gt; any 80<br/>(msg:&#34;admin&#34;;)`, cell)
	require.Equal(t, `alert tcp any any -> any 80(msg:"admin";)`, CleanRule(cell))

	name, ok := LabelledCell(doc, "Signature Name")
	require.True(t, ok)
	require.Equal(t, "WEB-MISC admin access", name)

	_, ok = LabelledCell(doc, "Vulnerabilities:")
	require.False(t, ok)
}

func TestGetText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div>a<b>b</b><i>c<u>d</u></i></div>`))
	require.NoError(t, err)
	require.Equal(t, "abcd", GetText(doc.Find("div").Get(0)))
	require.Equal(t, "", GetText(nil))
}

func TestFindLabelledCell(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<table><tr>
<td>Engine Time:</td>
<td><span class="bold">2016-03-01 10:22:31 UTC</span></td>
</tr></table>`))
	require.NoError(t, err)

	cell := FindLabelledCell(doc, "Engine Time:")
	require.Equal(t, 1, cell.Length())
	require.Equal(t, "2016-03-01 10:22:31 UTC", cell.Text())

	require.Equal(t, 0, FindLabelledCell(doc, "Sensor:").Length())
}
