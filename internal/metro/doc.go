// Package metro classifies location references into configured metro
// areas.
//
// Metro identity is fragmented inconsistently across sources: some pages
// encode it in a URL path segment, some in free text, some only implicitly
// via a known venue name. The classifier layers those signals in order of
// reliability and short-circuits on the first hit.
package metro
