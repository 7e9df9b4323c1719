package worms

// StatusAccepted is the backbone's designation that a name is currently
// valid (not a synonym). Only accepted records are usable for matching.
const StatusAccepted = "accepted"

// Record is a single Aphia record as returned by the WoRMS REST API.
// Field names follow the lowercase JSON keys WoRMS emits.
type Record struct {
	AphiaID        int64  `json:"AphiaID"`
	ScientificName string `json:"scientificname"`
	Authority      string `json:"authority"`
	Status         string `json:"status"`
	Rank           string `json:"rank"`
	LSID           string `json:"lsid"`
	ValidAphiaID   int64  `json:"valid_AphiaID"`
	ValidName      string `json:"valid_name"`
	Kingdom        string `json:"kingdom"`
	Phylum         string `json:"phylum"`
	Class          string `json:"class"`
	Order          string `json:"order"`
	Family         string `json:"family"`
	Genus          string `json:"genus"`
	Species        string `json:"species"`
	IsMarine       *int   `json:"isMarine"`
	MatchType      string `json:"match_type"`
}

// Accepted reports whether the record may be used to build a classification.
func (r Record) Accepted() bool {
	return r.Status == StatusAccepted
}

// FetchOutcome is the result of a single record-by-AphiaID fetch. It keeps
// "the backbone has no such record" distinguishable from "the call failed",
// even though both fall through to the next matching stage.
type FetchOutcome struct {
	Record   *Record
	NotFound bool
	Err      error
}

// OK reports whether a record was returned.
func (o FetchOutcome) OK() bool {
	return o.Record != nil
}
