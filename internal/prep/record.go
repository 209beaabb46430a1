package prep

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Shape is the expected JSON shape of a brief field.
type Shape int

const (
	// ShapeText is a short paragraph.
	ShapeText Shape = iota
	// ShapeList is an ordered list of short strings.
	ShapeList
)

// Field describes one key of the brief record.
type Field struct {
	Key      string
	Title    string
	Shape    Shape
	Guidance string
}

const (
	KeyRoleSummary         = "role_summary"
	KeyTopRequiredSkills   = "top_required_skills"
	KeyStrongOverlaps      = "strong_overlaps"
	KeyGapsAndRisks        = "gaps_and_risks"
	KeyLikelyTechQuestions = "likely_tech_questions"
	KeyBehavioralQuestions = "behavioral_questions"
	KeyTalkingPoints       = "talking_points"
	KeyQuickUpskillingPlan = "quick_upskilling_plan"
)

// Fields is the brief schema in declaration order. The prompt, the coercer
// and the renderer all read it.
var Fields = []Field{
	{KeyRoleSummary, "Role Summary", ShapeText, "2-3 sentences on what this role really needs"},
	{KeyTopRequiredSkills, "Top Required Skills", ShapeList, "5-8 skills from the JD, ranked, short labels"},
	{KeyStrongOverlaps, "Strong Overlaps (CV → JD)", ShapeList, "bullet points mapping CV strengths to JD needs"},
	{KeyGapsAndRisks, "Gaps & Risks", ShapeList, "gaps likely to be probed in interviews"},
	{KeyLikelyTechQuestions, "Likely Technical Questions", ShapeList, "6-10 questions, mix of conceptual and hands-on"},
	{KeyBehavioralQuestions, "Behavioral Questions", ShapeList, "4-6 questions tied to JD themes"},
	{KeyTalkingPoints, "High-Impact Talking Points", ShapeList, "5-8 high-impact points the candidate should emphasize"},
	{KeyQuickUpskillingPlan, "Quick Upskilling Plan (≤2h Tasks)", ShapeList, "3-5 concrete mini-tasks, 2 hours or less each, to cover gaps before the interview"},
}

// ExpectedKeys returns the schema keys in declaration order.
func ExpectedKeys() []string {
	keys := make([]string, 0, len(Fields))
	for _, f := range Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Record is a coerced interview prep brief. Every schema field is optional:
// a nil pointer or nil slice means the model did not provide it.
// Records are built by Coerce and are not modified afterwards.
type Record struct {
	RoleSummary         *string  `mapstructure:"role_summary"`
	TopRequiredSkills   []string `mapstructure:"top_required_skills"`
	StrongOverlaps      []string `mapstructure:"strong_overlaps"`
	GapsAndRisks        []string `mapstructure:"gaps_and_risks"`
	LikelyTechQuestions []string `mapstructure:"likely_tech_questions"`
	BehavioralQuestions []string `mapstructure:"behavioral_questions"`
	TalkingPoints       []string `mapstructure:"talking_points"`
	QuickUpskillingPlan []string `mapstructure:"quick_upskilling_plan"`

	// Extras holds keys outside the schema, and schema keys whose value had
	// an unusable shape. They are persisted but never rendered.
	Extras map[string]any `mapstructure:"-"`
}

// Text returns the paragraph value of a ShapeText key.
func (r *Record) Text(key string) (string, bool) {
	if key == KeyRoleSummary && r.RoleSummary != nil {
		return *r.RoleSummary, true
	}
	return "", false
}

// List returns the value of a ShapeList key.
func (r *Record) List(key string) ([]string, bool) {
	var v []string
	switch key {
	case KeyTopRequiredSkills:
		v = r.TopRequiredSkills
	case KeyStrongOverlaps:
		v = r.StrongOverlaps
	case KeyGapsAndRisks:
		v = r.GapsAndRisks
	case KeyLikelyTechQuestions:
		v = r.LikelyTechQuestions
	case KeyBehavioralQuestions:
		v = r.BehavioralQuestions
	case KeyTalkingPoints:
		v = r.TalkingPoints
	case KeyQuickUpskillingPlan:
		v = r.QuickUpskillingPlan
	}
	return v, v != nil
}

// Has reports whether the schema key was provided.
func (r *Record) Has(key string) bool {
	if _, ok := r.Text(key); ok {
		return true
	}
	_, ok := r.List(key)
	return ok
}

// MarshalJSON writes the present schema keys in declaration order followed by
// the extras in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(key string, value any) error {
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for _, f := range Fields {
		var value any
		switch f.Shape {
		case ShapeText:
			text, ok := r.Text(f.Key)
			if !ok {
				continue
			}
			value = text
		case ShapeList:
			list, ok := r.List(f.Key)
			if !ok {
				continue
			}
			value = list
		}
		if err := write(f.Key, value); err != nil {
			return nil, err
		}
	}

	extras := make([]string, 0, len(r.Extras))
	for k := range r.Extras {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	for _, k := range extras {
		if err := write(k, r.Extras[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
