package recommend

import "testing"

func intPtr(v int) *int { return &v }

func TestContribution_ByQuestionType(t *testing.T) {
	w := DefaultWeights()

	cases := []struct {
		name string
		row  ResponseRow
		want int
	}{
		{"multiple choice uses option score", ResponseRow{QuestionType: "multiple_choice", OptionScore: intPtr(8)}, 8},
		{"multiple choice without option scores zero", ResponseRow{QuestionType: "multiple_choice"}, 0},
		{"scale doubles the response", ResponseRow{QuestionType: "scale", ScaleResponse: intPtr(4)}, 8},
		{"scale without response scores zero", ResponseRow{QuestionType: "scale"}, 0},
		{"text never scores", ResponseRow{QuestionType: "text", OptionScore: intPtr(9)}, 0},
	}
	for _, c := range cases {
		if got := w.Contribution(c.row); got != c.want {
			t.Errorf("%s: Contribution = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestAccumulate_SumsPerCategory(t *testing.T) {
	w := DefaultWeights()
	rows := []ResponseRow{
		{CategoryID: 1, QuestionType: "multiple_choice", OptionScore: intPtr(5)},
		{CategoryID: 1, QuestionType: "scale", ScaleResponse: intPtr(3)},
		{CategoryID: 2, QuestionType: "multiple_choice", OptionScore: intPtr(7)},
		{CategoryID: 2, QuestionType: "text"},
	}

	sums := w.Accumulate(rows)
	if sums[1] != 11 {
		t.Errorf("category 1 sum = %d, want 11", sums[1])
	}
	if sums[2] != 7 {
		t.Errorf("category 2 sum = %d, want 7", sums[2])
	}
}

// 规格中的手算样例：类别 1 选择题 8 分、类别 2 量表 4（贡献 8），
// 教育专业 "Computer Science" 命中类别名 → round(8*0.3 + 8*0.3 + 20) = 25。
func TestScore_WorkedExample(t *testing.T) {
	w := DefaultWeights()
	sums := map[uint]int{1: 8, 2: 8}
	categories := []CategoryInfo{{ID: 10, Name: "Computer Science Careers"}}

	got := w.Score(categories, sums, []string{"Computer Science"})
	if len(got) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(got))
	}
	if got[0].MatchScore != 25 {
		t.Errorf("MatchScore = %d, want 25", got[0].MatchScore)
	}
}

func TestScore_WorkStylePairRequiresBoth(t *testing.T) {
	w := DefaultWeights()
	categories := []CategoryInfo{{ID: 1, Name: "Anything"}}

	// 只有 work style（类别 3）而缺 values（类别 4）：整项跳过。
	onlyWorkStyle := w.Score(categories, map[uint]int{3: 50}, nil)
	if onlyWorkStyle[0].MatchScore != 0 {
		t.Errorf("work style alone contributed %d, want 0", onlyWorkStyle[0].MatchScore)
	}

	both := w.Score(categories, map[uint]int{3: 50, 4: 50}, nil)
	if both[0].MatchScore != 20 {
		t.Errorf("work style + values = %d, want 20", both[0].MatchScore)
	}
}

func TestScore_ClampsToHundred(t *testing.T) {
	w := DefaultWeights()
	sums := map[uint]int{1: 100000, 2: 100000, 3: 100000, 4: 100000, 5: 100000}
	categories := []CategoryInfo{{ID: 1, Name: "Engineering"}}

	got := w.Score(categories, sums, []string{"Engineering", "Engineering", "Engineering"})
	if got[0].MatchScore != 100 {
		t.Errorf("MatchScore = %d, want clamp at 100", got[0].MatchScore)
	}
}

func TestScore_EducationBonusStacksAndNeverDecreases(t *testing.T) {
	w := DefaultWeights()
	categories := []CategoryInfo{{ID: 1, Name: "Data Science"}}

	prev := -1
	fields := []string{}
	for i := 0; i < 6; i++ {
		got := w.Score(categories, nil, fields)
		if got[0].MatchScore < prev {
			t.Fatalf("score decreased from %d to %d after adding a matching entry", prev, got[0].MatchScore)
		}
		prev = got[0].MatchScore
		fields = append(fields, "data science")
	}

	// 三条命中：3 * 20 = 60。
	got := w.Score(categories, nil, []string{"Data Science", "data SCIENCE", "Science"})
	if got[0].MatchScore != 60 {
		t.Errorf("MatchScore = %d, want 60 for three stacked matches", got[0].MatchScore)
	}
}

func TestScore_SubstringMatchesBothDirections(t *testing.T) {
	cases := []struct {
		field    string
		category string
		want     bool
	}{
		{"Computer Science", "Computer Science Careers", true},
		{"Business Administration and Finance", "Finance", true},
		{"History", "Software Engineering", false},
		{"", "Software Engineering", false},
	}
	for _, c := range cases {
		if got := fieldMatchesCategory(c.field, c.category); got != c.want {
			t.Errorf("fieldMatchesCategory(%q, %q) = %v, want %v", c.field, c.category, got, c.want)
		}
	}
}

func TestScore_SortedDescendingStable(t *testing.T) {
	w := DefaultWeights()
	categories := []CategoryInfo{
		{ID: 1, Name: "Alpha"},
		{ID: 2, Name: "Beta"},
		{ID: 3, Name: "Gamma"},
		{ID: 4, Name: "Delta"},
	}
	// Beta 通过教育加分领先；其余三个同分，必须保持原有顺序。
	got := w.Score(categories, nil, []string{"Beta"})

	if got[0].CategoryID != 2 {
		t.Fatalf("top category = %d, want 2", got[0].CategoryID)
	}
	rest := []uint{got[1].CategoryID, got[2].CategoryID, got[3].CategoryID}
	want := []uint{1, 3, 4}
	for i := range want {
		if rest[i] != want[i] {
			t.Errorf("tied categories reordered: got %v, want %v", rest, want)
			break
		}
	}
}

func TestScore_NeverBelowZero(t *testing.T) {
	w := DefaultWeights()
	sums := map[uint]int{1: -500}
	got := w.Score([]CategoryInfo{{ID: 1, Name: "X"}}, sums, nil)
	if got[0].MatchScore != 0 {
		t.Errorf("MatchScore = %d, want 0 floor", got[0].MatchScore)
	}
}
