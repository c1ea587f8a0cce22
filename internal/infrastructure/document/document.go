// Package document loads the consent document and renders it for the bot
// and for the public web page.
package document

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Document is an immutable rendering of one consent document version.
type Document struct {
	Version      string
	Markdown     string
	HTML         string
	TelegramHTML string
}

type Renderer struct {
	md       goldmark.Markdown
	web      *bluemonday.Policy
	telegram *bluemonday.Policy
}

func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	web := bluemonday.UGCPolicy()
	web.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	// Telegram's HTML parse mode accepts only inline formatting tags.
	tg := bluemonday.NewPolicy()
	tg.AllowElements("b", "strong", "i", "em", "u", "s", "code", "pre")
	tg.AllowAttrs("href").OnElements("a")
	tg.AllowURLSchemes("http", "https", "tg")
	tg.RequireParseableURLs(true)

	return &Renderer{md: md, web: web, telegram: tg}
}

// Load reads the markdown file at path.
func (r *Renderer) Load(path, version string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read consent document: %w", err)
	}
	return r.Render(string(raw), version)
}

func (r *Renderer) Render(markdown, version string) (*Document, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}
	rendered := buf.String()

	return &Document{
		Version:      version,
		Markdown:     markdown,
		HTML:         r.web.Sanitize(rendered),
		TelegramHTML: r.toTelegram(rendered),
	}, nil
}

var (
	headingOpen  = regexp.MustCompile(`<h[1-6][^>]*>`)
	headingClose = regexp.MustCompile(`</h[1-6]>`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// toTelegram flattens block elements into newlines before sanitizing, since
// the bot API rejects unknown tags instead of ignoring them.
func (r *Renderer) toTelegram(rendered string) string {
	s := headingOpen.ReplaceAllString(rendered, "<b>")
	s = headingClose.ReplaceAllString(s, "</b>\n\n")
	s = strings.NewReplacer(
		"<p>", "",
		"</p>", "\n\n",
		"<br />", "\n",
		"<li>", "• ",
		"</li>", "\n",
		"<ul>", "",
		"</ul>", "\n",
		"<ol>", "",
		"</ol>", "\n",
		"<hr />", "\n",
	).Replace(s)
	s = r.telegram.Sanitize(s)
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
