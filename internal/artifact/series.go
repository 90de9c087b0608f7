package artifact

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Series is a one-dimensional labelled value series, e.g. a forecast for a
// single group or a per-stop risk score.
type Series struct {
	Labels []string
	Values []float64
}

// NewSeries wraps a series in an Artifact.
func NewSeries(s Series) Artifact {
	return Artifact{Kind: KindSeries, Value: s.Value()}
}

// Value encodes the series as object{labels, values}.
func (s Series) Value() cty.Value {
	labels := make([]cty.Value, len(s.Labels))
	for i, l := range s.Labels {
		labels[i] = cty.StringVal(l)
	}
	values := make([]cty.Value, len(s.Values))
	for i, v := range s.Values {
		values[i] = cty.NumberFloatVal(v)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"labels": tupleOrEmpty(labels),
		"values": tupleOrEmpty(values),
	})
}

// SeriesFromValue decodes a series payload produced by Value.
func SeriesFromValue(v cty.Value) (Series, error) {
	if v.IsNull() || !v.Type().IsObjectType() || !v.Type().HasAttribute("values") {
		return Series{}, fmt.Errorf("series value must be an object with a values attribute, got %s", v.Type().FriendlyName())
	}
	var s Series
	if v.Type().HasAttribute("labels") {
		for it := v.GetAttr("labels").ElementIterator(); it.Next(); {
			_, l := it.Element()
			s.Labels = append(s.Labels, l.AsString())
		}
	}
	for it := v.GetAttr("values").ElementIterator(); it.Next(); {
		_, val := it.Element()
		f, _ := val.AsBigFloat().Float64()
		s.Values = append(s.Values, f)
	}
	return s, nil
}
