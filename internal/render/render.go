// Package render draws command output: tables, the submission summary
// panel and indented JSON dumps.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/sivacor/sivacor-cli/internal/format"
	"github.com/sivacor/sivacor-cli/internal/services"
	"github.com/sivacor/sivacor-cli/pkg/domain"
)

type Printer struct {
	out io.Writer
	r   *lipgloss.Renderer
	loc *time.Location

	title  lipgloss.Style
	header lipgloss.Style
	key    lipgloss.Style
	faint  lipgloss.Style
	border lipgloss.Style
}

// New returns a Printer writing to out. Timestamps are shown in loc; plain
// disables colors regardless of the terminal.
func New(out io.Writer, loc *time.Location, plain bool) *Printer {
	if loc == nil {
		loc = time.Local
	}
	r := lipgloss.NewRenderer(out)
	if plain {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		out:    out,
		r:      r,
		loc:    loc,
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("13")).Padding(0, 1),
		key:    r.NewStyle().Bold(true),
		faint:  r.NewStyle().Faint(true),
		border: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// JSON writes v indented by two spaces.
func (p *Printer) JSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.out, string(b))
	return err
}

// column is one table column with the style applied to its cells.
type column struct {
	name  string
	style lipgloss.Style
}

func (p *Printer) table(title string, cols []column, rows [][]string) {
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.name
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return cols[col].style.Padding(0, 1)
		})
	fmt.Fprintln(p.out, p.title.Render(title))
	fmt.Fprintln(p.out, t.Render())
}

func (p *Printer) Users(users []domain.User) {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.FullName(),
			format.OrNA(u.Email),
			format.OrNA(u.LastJobID),
			strings.Join(u.OAuthProviders(), ","),
		})
	}
	p.table("SIVACOR Users", []column{
		{"Name", p.r.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))},
		{"Email", p.faint},
		{"Last Job ID", p.r.NewStyle()},
		{"OAuth IDs", p.r.NewStyle()},
	}, rows)
}

// Submissions lists folders. creators maps user ids to display names;
// unknown creators show as "Unknown".
func (p *Printer) Submissions(folders []domain.Folder, creators map[string]string) {
	rows := make([][]string, 0, len(folders))
	for _, f := range folders {
		creator, ok := creators[f.Meta.CreatorID]
		if !ok {
			creator = "Unknown"
		}
		rows = append(rows, []string{
			f.Name,
			format.OrNA(f.Meta.JobID),
			format.ImageSummary(f.Meta.Stages),
			creator,
			format.Timestamp(f.Created, p.loc),
			format.Elapsed(f.Created, f.Updated),
			format.StatusIcon(f.Meta.Status),
		})
	}
	p.table("Submission Folders", []column{
		{"Submission Name", p.r.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))},
		{"Job ID", p.faint},
		{"Image Tag", p.r.NewStyle()},
		{"Creator", p.r.NewStyle()},
		{"Created Date", p.r.NewStyle().Foreground(lipgloss.Color("14"))},
		{"Duration", p.r.NewStyle()},
		{"Status", p.r.NewStyle().Align(lipgloss.Center)},
	}, rows)
}

func (p *Printer) Jobs(jobs []domain.Job) {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{j.ID, j.Title, j.Status.String(), format.ShortDate(j.Created)})
	}
	p.table("SIVACOR Jobs", []column{
		{"Job ID", p.r.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))},
		{"Title", p.faint},
		{"Status", p.r.NewStyle()},
		{"Created", p.r.NewStyle()},
	}, rows)
}

// Summary draws the bordered submission panel.
func (p *Printer) Summary(d *services.SubmissionDetail) {
	meta := d.Folder.Meta
	var b strings.Builder
	line := func(label, value string, style lipgloss.Style) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.key.Render(label+":") + " " + style.Render(value))
	}

	yellow := p.r.NewStyle().Foreground(lipgloss.Color("11"))
	magenta := p.r.NewStyle().Foreground(lipgloss.Color("13"))
	cyan := p.r.NewStyle().Foreground(lipgloss.Color("14"))
	green := p.r.NewStyle().Foreground(lipgloss.Color("10"))

	line("Status", format.OrNA(meta.Status)+" "+format.StatusIcon(meta.Status), yellow)
	for i, s := range meta.Stages {
		image := format.StageImage(s)
		if s.MainFile != "" {
			image += p.faint.Render(" (" + s.MainFile + ")")
		}
		line(fmt.Sprintf("Stage %d Image Tag", i+1), image, magenta)
	}
	line("Created", format.Timestamp(d.Folder.Created, p.loc), cyan)
	line("Updated", format.Timestamp(d.Folder.Updated, p.loc), cyan)
	line("Duration", format.Elapsed(d.Folder.Created, d.Folder.Updated), cyan)
	if d.Creator != nil {
		line("Submitted by", d.Creator.FullName(), green)
	}
	if d.Job != nil {
		line("Job", d.Job.ID+" ("+d.Job.Status.String()+")", p.r.NewStyle())
		for _, l := range d.Job.Log {
			b.WriteString("\n" + p.faint.Render("  "+strings.TrimRight(l, "\r\n")))
		}
	}

	panel := p.r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Padding(0, 1)
	fmt.Fprintln(p.out, p.title.Render("Submission Summary: "+d.Folder.Name))
	fmt.Fprintln(p.out, panel.Render(b.String()))
}

// AvailableFiles lists the artifact ids a submission advertises, in
// registry order.
func (p *Printer) AvailableFiles(ids map[domain.ArtifactKind]string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.key.Render("Available Files for Download:"))
	if len(ids) == 0 {
		fmt.Fprintln(p.out, p.faint.Render("  none"))
		return
	}
	for _, spec := range domain.Artifacts() {
		id, ok := ids[spec.Kind]
		if !ok {
			continue
		}
		fmt.Fprintf(p.out, "  %s %s %s\n",
			p.key.Render(spec.DisplayName+":"), p.faint.Render(id), p.faint.Render("[--download "+spec.Name+"]"))
	}
}

// Files tabulates the artifact items stored in a submission folder.
func (p *Printer) Files(files []services.ArtifactFile) {
	if len(files) == 0 {
		return
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rows = append(rows, []string{f.Kind.Spec().DisplayName, f.Item.Name, format.HumanSize(f.Item.Size), f.Item.ID})
	}
	fmt.Fprintln(p.out)
	p.table("Stored Artifacts", []column{
		{"Artifact", p.key},
		{"File", p.r.NewStyle()},
		{"Size", p.r.NewStyle().Align(lipgloss.Right)},
		{"Item ID", p.faint},
	}, rows)
}
