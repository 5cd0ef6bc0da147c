// Labels represents a collection of label name -> value mappings. This type
// is commonly used with the writer methods of the metric families, e.g.:
//
//	latency.Set(Labels{"target": "8.8.8.8"}, 12.4)
//
// A nil Labels is valid for families declared without label names.
package metric

type Labels map[string]string
