package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"careerforge/internal/database"
)

// Document 是 PDF 渲染所需的扁平化简历数据。
// 区块按固定顺序输出：页眉、Summary、Education、Experience、Skills、Projects，
// 对应内容为空的区块整体省略。
type Document struct {
	Title       string
	FullName    string
	Contact     []string
	Summary     string
	Educations  []EducationEntry
	Experiences []ExperienceEntry
	Skills      []SkillEntry
	Projects    []ProjectEntry
}

// EducationEntry 是教育经历的展示行。
type EducationEntry struct {
	Institution string
	Degree      string
	Field       string
	Period      string
	GPA         string
	Description string
}

// ExperienceEntry 是工作经历的展示行。
type ExperienceEntry struct {
	Company     string
	Position    string
	Location    string
	Period      string
	Description string
}

// SkillEntry 是技能的展示行。
type SkillEntry struct {
	Name        string
	Proficiency string
}

// ProjectEntry 是项目经历的展示行。
type ProjectEntry struct {
	Name         string
	Technologies string
	URL          string
	Description  string
}

// BuildDocument 把 CV 及其 PersonalInfo 子树转换为渲染文档。
// 调用方需要保证 cv.PersonalInfo 已随子表一起预加载。
func BuildDocument(cv *database.CV) Document {
	info := cv.PersonalInfo

	doc := Document{
		Title:    cv.Title,
		FullName: info.FullName,
		Summary:  deref(info.Summary),
	}

	doc.Contact = appendNonEmpty(doc.Contact, info.Email)
	doc.Contact = appendNonEmpty(doc.Contact, deref(info.Phone))
	doc.Contact = appendNonEmpty(doc.Contact, deref(info.Address))
	doc.Contact = appendNonEmpty(doc.Contact, deref(info.LinkedIn))
	doc.Contact = appendNonEmpty(doc.Contact, deref(info.GitHub))
	doc.Contact = appendNonEmpty(doc.Contact, deref(info.Website))

	for _, e := range info.Educations {
		doc.Educations = append(doc.Educations, EducationEntry{
			Institution: e.Institution,
			Degree:      e.Degree,
			Field:       deref(e.FieldOfStudy),
			Period:      formatPeriod(deref(e.StartDate), deref(e.EndDate), false),
			GPA:         deref(e.GPA),
			Description: deref(e.Description),
		})
	}
	for _, e := range info.Experiences {
		doc.Experiences = append(doc.Experiences, ExperienceEntry{
			Company:     e.Company,
			Position:    e.Position,
			Location:    deref(e.Location),
			Period:      formatPeriod(deref(e.StartDate), deref(e.EndDate), e.IsCurrent),
			Description: deref(e.Description),
		})
	}
	for _, s := range info.Skills {
		doc.Skills = append(doc.Skills, SkillEntry{Name: s.Name, Proficiency: s.Proficiency})
	}
	for _, p := range info.Projects {
		doc.Projects = append(doc.Projects, ProjectEntry{
			Name:         p.Name,
			Technologies: deref(p.Technologies),
			URL:          deref(p.URL),
			Description:  deref(p.Description),
		})
	}

	return doc
}

// HTML 渲染文档为打印用 HTML。用户输入一律经模板转义。
func (d Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render cv document: %w", err)
	}
	return buf.String(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func appendNonEmpty(dst []string, v string) []string {
	if strings.TrimSpace(v) == "" {
		return dst
	}
	return append(dst, strings.TrimSpace(v))
}

func formatPeriod(start, end string, isCurrent bool) string {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if isCurrent {
		end = "Present"
	}
	switch {
	case start == "" && end == "":
		return ""
	case start == "":
		return end
	case end == "":
		return start
	default:
		return start + " – " + end
	}
}

var documentTemplate = template.Must(template.New("cv").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Georgia, serif; font-size: 11pt; color: #1a1a1a; margin: 48px; }
  h1 { font-size: 22pt; margin: 0 0 4px 0; }
  h2 { font-size: 13pt; border-bottom: 1px solid #999; padding-bottom: 2px; margin: 18px 0 8px 0; text-transform: uppercase; letter-spacing: 1px; }
  .contact { color: #444; font-size: 10pt; margin-bottom: 6px; }
  .entry { margin-bottom: 10px; }
  .entry-title { font-weight: bold; }
  .entry-meta { color: #555; font-size: 10pt; }
  .skills span { display: inline-block; margin-right: 14px; }
</style>
</head>
<body>
<h1>{{.FullName}}</h1>
{{if .Contact}}<div class="contact">{{range $i, $c := .Contact}}{{if $i}} · {{end}}{{$c}}{{end}}</div>{{end}}
{{if .Summary}}<h2>Summary</h2>
<p>{{.Summary}}</p>{{end}}
{{if .Educations}}<h2>Education</h2>
{{range .Educations}}<div class="entry">
  <div class="entry-title">{{.Institution}} — {{.Degree}}{{if .Field}}, {{.Field}}{{end}}</div>
  <div class="entry-meta">{{.Period}}{{if .GPA}}{{if .Period}} · {{end}}GPA {{.GPA}}{{end}}</div>
  {{if .Description}}<div>{{.Description}}</div>{{end}}
</div>{{end}}{{end}}
{{if .Experiences}}<h2>Experience</h2>
{{range .Experiences}}<div class="entry">
  <div class="entry-title">{{.Position}} — {{.Company}}</div>
  <div class="entry-meta">{{.Period}}{{if .Location}}{{if .Period}} · {{end}}{{.Location}}{{end}}</div>
  {{if .Description}}<div>{{.Description}}</div>{{end}}
</div>{{end}}{{end}}
{{if .Skills}}<h2>Skills</h2>
<div class="skills">{{range .Skills}}<span>{{.Name}} ({{.Proficiency}})</span>{{end}}</div>{{end}}
{{if .Projects}}<h2>Projects</h2>
{{range .Projects}}<div class="entry">
  <div class="entry-title">{{.Name}}</div>
  <div class="entry-meta">{{if .Technologies}}{{.Technologies}}{{end}}{{if .URL}}{{if .Technologies}} · {{end}}{{.URL}}{{end}}</div>
  {{if .Description}}<div>{{.Description}}</div>{{end}}
</div>{{end}}{{end}}
</body>
</html>
`))
