package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// PlainText extracts the plain string value of a page property. Title,
// rich_text, email, phone, URL, and select properties are supported; any
// other type yields "".
func PlainText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		return joinRichText(p.Title)
	case notionapi.TitleProperty:
		return joinRichText(p.Title)
	case *notionapi.RichTextProperty:
		return joinRichText(p.RichText)
	case notionapi.RichTextProperty:
		return joinRichText(p.RichText)
	case *notionapi.EmailProperty:
		return p.Email
	case notionapi.EmailProperty:
		return p.Email
	case *notionapi.PhoneNumberProperty:
		return p.PhoneNumber
	case notionapi.PhoneNumberProperty:
		return p.PhoneNumber
	case *notionapi.URLProperty:
		return p.URL
	case notionapi.URLProperty:
		return p.URL
	case *notionapi.SelectProperty:
		return p.Select.Name
	case notionapi.SelectProperty:
		return p.Select.Name
	default:
		return ""
	}
}

func joinRichText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
		if rt.PlainText == "" && rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}
