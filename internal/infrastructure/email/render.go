package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/web"
)

const (
	subjectLayout = "Daily News Digest - %s"
	previewRunes  = 100
)

var digestTemplate = template.Must(template.New("digest").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Daily News Digest - {{.Date}}</h2>
  {{- if .Summary}}
  <div style="color: #555; line-height: 1.5;">{{.Summary}}</div>
  {{- end}}
  <p style="color: #555; line-height: 1.5;">Here are today's top news stories:</p>
  {{- range .Groups}}
  <h3 style="color: #333; text-transform: capitalize; margin-top: 25px; border-bottom: 1px solid #eee; padding-bottom: 8px;">{{.Category}} News</h3>
  {{- range .Items}}
  <div style="margin-bottom: 20px;">
    <h4 style="margin-bottom: 5px;"><a href="{{.URL}}" style="color: #0066cc; text-decoration: none;">{{.Title}}</a></h4>
    <p style="color: #777; font-size: 12px; margin-top: 0;">{{.Source}} &bull; {{.Published}}</p>
    <p style="color: #555; margin-top: 8px;">{{.Preview}}</p>
  </div>
  {{- end}}
  {{- end}}
  <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; color: #999; font-size: 12px;">
    <p>This is an automated daily news digest.</p>
    <p>To unsubscribe from these emails, please contact your administrator.</p>
  </div>
</div>
`))

type view struct {
	Date    string
	Summary template.HTML
	Groups  []group
}

type group struct {
	Category string
	Items    []item
}

type item struct {
	Title     string
	URL       string
	Source    string
	Published string
	Preview   string
}

// Subject formats the mail subject for a digest produced at date.
func Subject(date time.Time, loc *time.Location) string {
	return fmt.Sprintf(subjectLayout, localDate(date, loc))
}

// Render builds the HTML body. The summary is model output and is embedded as markup.
func Render(d domain.Digest, loc *time.Location) (string, error) {
	v := view{
		Date:    localDate(d.Date, loc),
		Summary: template.HTML(d.Summary),
		Groups:  groupByCategory(d.Articles),
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// groupByCategory keeps categories in first-seen order and articles in digest order.
func groupByCategory(articles []domain.Article) []group {
	var groups []group
	index := map[string]int{}
	for _, a := range articles {
		category := a.Category
		if category == "" {
			category = "uncategorized"
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, group{Category: category})
		}
		groups[i].Items = append(groups[i].Items, toItem(a))
	}
	return groups
}

func toItem(a domain.Article) item {
	published := "No date"
	if !a.PublishedAt.IsZero() {
		published = a.PublishedAt.Format(time.DateOnly)
	}

	preview := web.Truncate(web.CleanText(a.Content), previewRunes)
	if preview == "" {
		preview = a.Description
	}
	if preview == "" {
		preview = "No content available."
	}

	return item{
		Title:     a.Title,
		URL:       a.URL,
		Source:    a.SourceID,
		Published: published,
		Preview:   preview,
	}
}

func localDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(time.DateOnly)
}
