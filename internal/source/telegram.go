package source

import (
	"strings"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/normalize"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Telegram public channel previews (t.me/s/<channel>) render one
// .tgme_widget_message block per post. Channels that mirror a newsroom put
// the headline on the first line of the message and the timestamp on the
// last one.
const (
	telegramMessage     = ".tgme_widget_message"
	telegramMessageText = ".tgme_widget_message_text"
	telegramPostAttr    = "&[data-post]"
)

func applyTelegramDefaults(d *Descriptor) {
	if d.Items == "" {
		d.Items = telegramMessage
	}
	if d.Fields.ID.IsZero() {
		d.Fields.ID = selector.Path(telegramPostAttr)
	}

	text := selector.Func(func(it *selector.Item) any { return messageText(it) })
	if d.Fields.Title.IsZero() {
		d.Fields.Title = text
		if d.ParseTitle == nil {
			d.ParseTitle = func(v any) (string, bool) {
				s, ok := selector.String(v)
				if !ok {
					return "", false
				}
				return normalize.Title(normalize.FirstLine(s))
			}
		}
	}
	if d.Fields.Content.IsZero() {
		d.Fields.Content = text
	}
	if d.Fields.Date.IsZero() {
		d.Fields.Date = text
		if d.ParseDate == nil {
			dates := d.Dates
			if dates == nil {
				dates = &normalize.DateParser{}
			}
			d.ParseDate = func(v any) *time.Time {
				s, ok := selector.String(v)
				if !ok {
					return nil
				}
				return dates.Parse(normalize.LastLine(s))
			}
		}
	}
	if d.Fields.URL.IsZero() {
		d.Fields.URL = selector.Func(postURL)
	}
	if d.ContentType == "" {
		d.ContentType = types.ContentPlainText
	}
}

// messageText returns the message body with <br> turned into line breaks.
func messageText(it *selector.Item) any {
	if !it.IsMarkup() {
		return nil
	}
	body := it.Sel.Find(telegramMessageText).First()
	if body.Length() == 0 {
		return nil
	}
	c := body.Clone()
	c.Find("br").ReplaceWithHtml("\n")
	return c.Text()
}

// postURL builds the permalink from the data-post attribute ("channel/123").
func postURL(it *selector.Item) any {
	post, ok := selector.ResolveString(it, selector.Path(telegramPostAttr))
	post = strings.TrimSpace(post)
	if !ok || post == "" {
		return nil
	}
	return "https://t.me/" + post
}
