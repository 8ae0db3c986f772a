// Package alert defines the canonical clinical alert record, the normalizer
// that converts heterogeneous backend payload shapes into it, the dual-rule
// severity classifier, and the pure search/sort helpers applied on top of
// store views.
package alert
