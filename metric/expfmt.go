package metric

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ContentType is the content type of the text exposition format produced
// by Render.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

var (
	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
)

// Render serializes the given family snapshots into the text exposition
// format: a # HELP and # TYPE line per family, then one line per sample as
//
//	name{label1="value1",label2="value2"} value
//
// Histograms are rendered as cumulative name_bucket lines with an le label
// plus name_sum and name_count; summaries as quantile-labeled lines plus
// name_sum and name_count. The output is a pure function of the snapshot.
func Render(w io.Writer, families []FamilySnapshot) error {
	for _, mf := range families {
		names := mf.LabelNames
		if mf.Help != "" {
			if _, err := fmt.Fprintf(w, "# HELP %s %s\n", mf.Name, helpEscaper.Replace(mf.Help)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "# TYPE %s %s\n", mf.Name, mf.Kind); err != nil {
			return err
		}
		for _, s := range mf.Samples {
			if err := renderSample(w, mf, names, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderSample(w io.Writer, mf FamilySnapshot, names []string, s Sample) error {
	switch mf.Kind {
	case KindGauge, KindCounter:
		_, err := fmt.Fprintf(w, "%s%s %s\n",
			mf.Name, labelString(names, s.LabelValues, "", ""), formatValue(s.Value))
		return err

	case KindHistogram:
		h := s.Histogram
		if h == nil {
			return fmt.Errorf("histogram sample of %q has no value", mf.Name)
		}
		for i, bound := range h.Bounds {
			_, err := fmt.Fprintf(w, "%s_bucket%s %d\n",
				mf.Name,
				labelString(names, s.LabelValues, "le", formatValue(bound)),
				h.Counts[i])
			if err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n",
			mf.Name,
			labelString(names, s.LabelValues, "le", "+Inf"),
			h.Count); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %s\n",
			mf.Name, labelString(names, s.LabelValues, "", ""), formatValue(h.Sum)); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%s_count%s %d\n",
			mf.Name, labelString(names, s.LabelValues, "", ""), h.Count)
		return err

	case KindSummary:
		sv := s.Summary
		if sv == nil {
			return fmt.Errorf("summary sample of %q has no value", mf.Name)
		}
		for _, q := range sv.Quantiles {
			_, err := fmt.Fprintf(w, "%s%s %s\n",
				mf.Name,
				labelString(names, s.LabelValues, "quantile", formatValue(q.Rank)),
				formatValue(q.Value))
			if err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %s\n",
			mf.Name, labelString(names, s.LabelValues, "", ""), formatValue(sv.Sum)); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%s_count%s %d\n",
			mf.Name, labelString(names, s.LabelValues, "", ""), sv.Count)
		return err

	default:
		return fmt.Errorf("family %q has unknown kind %d", mf.Name, mf.Kind)
	}
}

// labelString renders the {name="value",...} block, appending one extra
// pair (le or quantile) when extraName is non-empty. It returns the empty
// string for a sample without any labels.
func labelString(names, values []string, extraName, extraValue string) string {
	if len(names) == 0 && extraName == "" {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n)
		b.WriteString(`="`)
		if i < len(values) {
			b.WriteString(labelEscaper.Replace(values[i]))
		}
		b.WriteByte('"')
	}
	if extraName != "" {
		if len(names) > 0 {
			b.WriteByte(',')
		}
		b.WriteString(extraName)
		b.WriteString(`="`)
		b.WriteString(extraValue)
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

func formatValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
