package record

import (
	"fmt"
	"reflect"
	"strings"

	"sparkscan/internal/spark"
)

// Field names one resolvable part of a record.
type Field string

const (
	FieldName    Field = "name"
	FieldScore   Field = "score"
	FieldSpeed   Field = "speed"
	FieldStamina Field = "stamina"
	FieldPower   Field = "power"
	FieldGuts    Field = "guts"
	FieldWit     Field = "wit"
	FieldTurf    Field = "turf"
	FieldDirt    Field = "dirt"
	FieldSprint  Field = "sprint"
	FieldMile    Field = "mile"
	FieldMedium  Field = "medium"
	FieldLong    Field = "long"
	FieldFront   Field = "front"
	FieldPace    Field = "pace"
	FieldLate    Field = "late"
	FieldEnd     Field = "end"
	FieldGP1     Field = "gp1"
	FieldGP2     Field = "gp2"
	FieldSkills  Field = "skills"

	FieldSparksParent Field = "sparks.parent"
	FieldSparksGP1    Field = "sparks.gp1"
	FieldSparksGP2    Field = "sparks.gp2"
)

// Fields lists every field in display order.
var Fields = []Field{
	FieldName, FieldScore,
	FieldSpeed, FieldStamina, FieldPower, FieldGuts, FieldWit,
	FieldTurf, FieldDirt, FieldSprint, FieldMile, FieldMedium, FieldLong,
	FieldFront, FieldPace, FieldLate, FieldEnd,
	FieldGP1, FieldGP2, FieldSkills,
	FieldSparksParent, FieldSparksGP1, FieldSparksGP2,
}

// SparkField returns the field holding the sparks of o.
func SparkField(o spark.Origin) Field {
	return Field("sparks." + o.String())
}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown record field %q", s)
}

// Origin returns the spark origin of a sparks field.
func (f Field) Origin() (spark.Origin, bool) {
	for _, o := range spark.Origins {
		if f == SparkField(o) {
			return o, true
		}
	}
	return 0, false
}

// Value returns the current value of field f.
func (r Record) Value(f Field) any {
	if o, ok := f.Origin(); ok {
		return r.Sparks.Of(o)
	}
	switch f {
	case FieldName:
		return r.Name
	case FieldScore:
		return r.Score
	case FieldGP1:
		return r.GP1
	case FieldGP2:
		return r.GP2
	case FieldSkills:
		return r.Skills
	}
	if p := r.intField(f); p != nil {
		return *p
	}
	if p := r.gradeField(f); p != nil {
		return *p
	}
	return nil
}

// CopyField sets field f of r to the value it has in src.
func (r *Record) CopyField(src Record, f Field) {
	if o, ok := f.Origin(); ok {
		r.Sparks.Set(o, append([]spark.Spark(nil), src.Sparks.Of(o)...))
		return
	}
	switch f {
	case FieldName:
		r.Name = src.Name
	case FieldScore:
		r.Score = src.Score
	case FieldGP1:
		r.GP1 = src.GP1
	case FieldGP2:
		r.GP2 = src.GP2
	case FieldSkills:
		r.Skills = append([]string(nil), src.Skills...)
	default:
		if p := r.intField(f); p != nil {
			*p = *src.intField(f)
		} else if p := r.gradeField(f); p != nil {
			*p = *src.gradeField(f)
		}
	}
}

func (s *Stats) intField(f Field) *int {
	switch f {
	case FieldSpeed:
		return &s.Speed
	case FieldStamina:
		return &s.Stamina
	case FieldPower:
		return &s.Power
	case FieldGuts:
		return &s.Guts
	case FieldWit:
		return &s.Wit
	}
	return nil
}

func (a *Aptitudes) gradeField(f Field) *string {
	switch f {
	case FieldTurf:
		return &a.Turf
	case FieldDirt:
		return &a.Dirt
	case FieldSprint:
		return &a.Sprint
	case FieldMile:
		return &a.Mile
	case FieldMedium:
		return &a.Medium
	case FieldLong:
		return &a.Long
	case FieldFront:
		return &a.Front
	case FieldPace:
		return &a.Pace
	case FieldLate:
		return &a.Late
	case FieldEnd:
		return &a.End
	}
	return nil
}

// Set assigns stat field f. It reports false when f is not a stat.
func (s *Stats) Set(f Field, v int) bool {
	p := s.intField(f)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// Set assigns aptitude field f. It reports false when f is not an aptitude.
func (a *Aptitudes) Set(f Field, grade string) bool {
	p := a.gradeField(f)
	if p == nil {
		return false
	}
	*p = grade
	return true
}

// Diff lists the fields whose canonical values differ, in display order.
func Diff(a, b Record) []Field {
	ca, cb := Canonical(a), Canonical(b)
	var out []Field
	for _, f := range Fields {
		if !reflect.DeepEqual(ca.Value(f), cb.Value(f)) {
			out = append(out, f)
		}
	}
	return out
}

// Format renders a field value for display.
func Format(v any) string {
	switch x := v.(type) {
	case []string:
		return strings.Join(x, ", ")
	case []spark.Spark:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = fmt.Sprintf("%s %s x%d", s.Color, s.Name, s.Count)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
