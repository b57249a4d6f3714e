package pdf

import (
	"strings"
	"testing"

	"careerforge/internal/database"
)

func strPtr(s string) *string { return &s }

func TestBuildDocument_SectionOrderAndOmission(t *testing.T) {
	summary := "Ships backends."
	cv := &database.CV{
		Title: "Main CV",
		PersonalInfo: database.PersonalInfo{
			FullName: "Grace Hopper",
			Email:    "grace@example.com",
			Phone:    strPtr("555-0100"),
			Summary:  &summary,
			Educations: []database.Education{
				{Institution: "Yale", Degree: "PhD", FieldOfStudy: strPtr("Mathematics")},
			},
			Skills: []database.Skill{
				{Name: "COBOL", Proficiency: "expert"},
			},
		},
	}

	html, err := BuildDocument(cv).HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}

	for _, want := range []string{"Grace Hopper", "grace@example.com", "Summary", "Education", "Yale", "Skills", "COBOL"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered html missing %q", want)
		}
	}
	// 空区块整体省略。
	for _, absent := range []string{"Experience", "Projects"} {
		if strings.Contains(html, ">"+absent+"<") {
			t.Errorf("rendered html contains empty section %q", absent)
		}
	}

	// 固定区块顺序：Summary → Education → Skills。
	if !(strings.Index(html, "Summary") < strings.Index(html, "Education") &&
		strings.Index(html, "Education") < strings.Index(html, "Skills")) {
		t.Error("sections rendered out of order")
	}
}

func TestBuildDocument_HeaderOnly(t *testing.T) {
	cv := &database.CV{
		Title: "Minimal",
		PersonalInfo: database.PersonalInfo{
			FullName: "Min",
			Email:    "min@example.com",
		},
	}

	html, err := BuildDocument(cv).HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !strings.Contains(html, "Min") {
		t.Error("header missing")
	}
	for _, absent := range []string{"Summary", "Education", "Experience", "Skills", "Projects"} {
		if strings.Contains(html, "<h2>"+absent+"</h2>") {
			t.Errorf("unexpected section %q in header-only document", absent)
		}
	}
}

func TestBuildDocument_EscapesUserInput(t *testing.T) {
	evil := "<script>alert(1)</script>"
	cv := &database.CV{
		PersonalInfo: database.PersonalInfo{
			FullName: evil,
			Email:    "x@example.com",
		},
	}

	html, err := BuildDocument(cv).HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if strings.Contains(html, evil) {
		t.Error("user input rendered unescaped")
	}
}

func TestFormatPeriod(t *testing.T) {
	cases := []struct {
		start, end string
		current    bool
		want       string
	}{
		{"2019", "2023", false, "2019 – 2023"},
		{"2019", "", true, "2019 – Present"},
		{"2019", "2023", true, "2019 – Present"},
		{"", "", false, ""},
		{"", "2023", false, "2023"},
		{"2019", "", false, "2019"},
	}
	for _, c := range cases {
		if got := formatPeriod(c.start, c.end, c.current); got != c.want {
			t.Errorf("formatPeriod(%q, %q, %v) = %q, want %q", c.start, c.end, c.current, got, c.want)
		}
	}
}
