// Package extract turns raw page content into candidates.
//
// Two extractors share the candidate stream: Listing scopes extraction to
// one structural row per event on gigography-style pages, and Generic
// scans a bounded number of text-bearing nodes on arbitrary pages for
// date and location co-occurrence. Both honor the evidence-or-bust
// contract: a candidate's snippet must literally contain its date text
// and at least one of venue/city, or the fragment yields nothing.
package extract
