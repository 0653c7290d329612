package storage

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	gomarkdown "github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/nao1215/markdown"
	"github.com/rohmanhakim/site-crawler/internal/stats"
)

/*
The statistics page is assembled as Markdown and rendered to a standalone
HTML document.

Layout
- Crawl summary (host, title, robots mode, timing)
- Resource totals per class
- Links and connected domains
- Open ports, when a port scan ran
*/

// buildMarkdown renders snapshot as Markdown. domainReports maps an external
// domain to the filename of its most recent report in the same directory.
func buildMarkdown(snapshot stats.Snapshot, domainReports map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1("Crawl statistics for " + snapshot.Host)
	md.PlainText("")

	writeSummary(md, snapshot)
	writeResources(md, snapshot)
	writeLinks(md, snapshot, domainReports)
	writePorts(md, snapshot)

	if err := md.Build(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummary(md *markdown.Markdown, snapshot stats.Snapshot) {
	title := snapshot.Title
	if title == "" {
		title = "-"
	}
	robotsMode := "ignored"
	if snapshot.RespectRobots {
		robotsMode = "respected"
	}

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Host", snapshot.Host},
			{"Title", escapeCell(title)},
			{"robots.txt", robotsMode},
			{"Started", snapshot.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", snapshot.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", snapshot.Duration().Round(time.Millisecond).String()},
			{"Average RTT", snapshot.AverageRTT.Round(time.Microsecond).String()},
			{"Failed fetches", strconv.Itoa(snapshot.FailedFetches)},
			{"Duplicate pages", strconv.Itoa(snapshot.DuplicatePages)},
		},
	})
	md.PlainText("")
}

func writeResources(md *markdown.Markdown, snapshot stats.Snapshot) {
	row := func(name string, t stats.ClassTotal) []string {
		return []string{name, strconv.Itoa(t.Count), strconv.FormatInt(t.Bytes, 10)}
	}

	md.H2("Resources")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Class", "Count", "Bytes"},
		Rows: [][]string{
			row("Pages", snapshot.Pages),
			row("Images", snapshot.Images),
			row("Videos", snapshot.Videos),
			row("Documents", snapshot.Documents),
		},
	})
	md.PlainText("")
}

func writeLinks(md *markdown.Markdown, snapshot stats.Snapshot, domainReports map[string]string) {
	md.H2("Links")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows: [][]string{
			{"Internal", strconv.Itoa(snapshot.InternalLinks)},
			{"External", strconv.Itoa(snapshot.ExternalLinks)},
		},
	})
	md.PlainText("")

	md.H2("Connected domains")
	md.PlainText("")
	if len(snapshot.ExternalDomains) == 0 {
		md.PlainText("No external domains referenced.")
		md.PlainText("")
		return
	}

	items := make([]string, 0, len(snapshot.ExternalDomains))
	for _, domain := range snapshot.ExternalDomains {
		if report, ok := domainReports[domain]; ok {
			items = append(items, fmt.Sprintf("[%s](%s)", domain, report))
			continue
		}
		items = append(items, domain)
	}
	md.BulletList(items...)
	md.PlainText("")
}

func writePorts(md *markdown.Markdown, snapshot stats.Snapshot) {
	if !snapshot.PortScan {
		return
	}

	md.H2("Open ports")
	md.PlainText("")
	if len(snapshot.OpenPorts) == 0 {
		md.PlainText("No open ports found.")
		md.PlainText("")
		return
	}

	ports := make([]string, len(snapshot.OpenPorts))
	for i, p := range snapshot.OpenPorts {
		ports[i] = strconv.Itoa(p)
	}
	md.BulletList(ports...)
	md.PlainText("")
}

// renderHTML turns Markdown into a complete HTML page.
func renderHTML(title string, source []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Title: title,
		Flags: mdhtml.CommonFlags | mdhtml.CompletePage,
	})
	return gomarkdown.ToHTML(source, p, renderer)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
