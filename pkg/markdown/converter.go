package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphPattern = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	headingPattern   = regexp.MustCompile(`(?s)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	tagPattern       = regexp.MustCompile(`</?([a-zA-Z0-9]+)(?:\s[^>]*)?/?>`)
	newlinePattern   = regexp.MustCompile(`\n{3,}`)
)

// Tags Telegram's HTML parse mode accepts
var supportedTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true, "blockquote": true,
}

var tagReplacer = strings.NewReplacer(
	"<strong>", "<b>", "</strong>", "</b>",
	"<em>", "<i>", "</em>", "</i>",
	"<del>", "<s>", "</del>", "</s>",
	"<br />", "\n", "<br>", "\n",
	"<ul>\n", "", "</ul>\n", "", "<ol>\n", "", "</ol>\n", "",
	"<li>", "• ", "</li>\n", "\n", "</li>", "\n",
)

// ToTelegramHTML converts markdown, such as a model answer, to the HTML
// subset Telegram renders. Typographic substitutions are off so the output
// only carries entities Telegram understands.
func ToTelegramHTML(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.UseXHTML,
	})
	html := string(blackfriday.Run([]byte(markdown),
		blackfriday.WithRenderer(renderer),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
	))

	return cleanHTMLForTelegram(html)
}

func cleanHTMLForTelegram(html string) string {
	html = paragraphPattern.ReplaceAllString(html, "$1\n")
	html = headingPattern.ReplaceAllString(html, "<b>$1</b>\n")
	html = tagReplacer.Replace(html)

	html = tagPattern.ReplaceAllStringFunc(html, func(tag string) string {
		name := tagPattern.FindStringSubmatch(tag)[1]
		if supportedTags[strings.ToLower(name)] {
			return tag
		}
		return ""
	})

	html = newlinePattern.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
