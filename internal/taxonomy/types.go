package taxonomy

import (
	"github.com/obis-tools/taxonmatch/internal/dictionary"
)

// StandardRanks are the Darwin Core rank columns written onto every
// resolved row, root first.
var StandardRanks = []string{"kingdom", "phylum", "class", "order", "family", "genus", "species"}

const (
	// AphiaID 12 is the WoRMS placeholder taxon "incertae sedis", used as
	// the universal fallback classification.
	IncertaeSedisName = "incertae sedis"
	IncertaeSedisLSID = "urn:lsid:marinespecies.org:taxname:12"

	ColumnVerbatim = "verbatimIdentification"
	ColumnAssay    = "assay_name"
	ColumnCleaned  = "cleanedTaxonomy"
	ColumnDebug    = "match_type_debug"

	LabelUnassigned    = "incertae_sedis_unassigned"
	LabelSimpleCasePfx = "incertae_sedis_simple_case_"
	LabelEmptyFallback = "incertae_sedis_truly_empty_fallback"
	LabelNoMatch       = "Failed_All_Stages_NoMatch"
	labelAphiaPrefix   = "Success_AphiaID_"
	labelBatchPrefix   = "Success_Batch_"
)

const (
	// MaxWorkers caps concurrent backbone calls. WoRMS degrades beyond 3
	// outstanding requests; this is a service constraint, not a tunable.
	MaxWorkers = 3

	// BatchSize is the name-match batch size recommended by WoRMS.
	BatchSize = 50

	defaultMaxDepth = 99
)

// Key identifies one distinct resolution input: the verbatim lineage string
// together with the assay that produced it. All rows sharing a Key receive
// the same classification.
type Key struct {
	Verbatim string
	Assay    string
}

// SentinelKey collects every row whose verbatim identification is empty,
// whitespace, or "unassigned" after trimming, regardless of assay.
var SentinelKey = Key{Verbatim: "IS_TRULY_EMPTY"}

// Classification is the resolved output for one Key. Ranks always carries
// an entry for every StandardRanks name; a nil value means the backbone
// did not supply that rank.
type Classification struct {
	ScientificName   string
	ScientificNameID string
	TaxonRank        *string
	NameAccordingTo  string
	MatchTypeDebug   string
	CleanedTaxonomy  string
	Ranks            map[string]*string
}

// AssayRankInfo carries per-assay depth expectations. MaxDepth is the term
// count of a full-length lineage for that assay; 0 means unknown.
type AssayRankInfo struct {
	MaxDepth int
}

// Config supplies the collaborators and policy the resolver needs.
type Config struct {
	// Source is the provenance label written to nameAccordingTo.
	Source string

	// SkipSpeciesAssays lists assays whose most specific term must not be
	// used for matching (e.g. 18S assays whose species calls are unreliable).
	SkipSpeciesAssays map[string]bool

	// AssayRanks gives expected lineage depth per assay.
	AssayRanks map[string]AssayRankInfo

	// Dictionary is the optional local name->AphiaID pre-match table.
	Dictionary dictionary.Dictionary

	// Workers is a concurrency hint, always clamped to MaxWorkers.
	Workers int
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// incertaeSedis builds the universal fallback record.
func incertaeSedis(source, label, cleaned string) Classification {
	rec := Classification{
		ScientificName:   IncertaeSedisName,
		ScientificNameID: IncertaeSedisLSID,
		NameAccordingTo:  source,
		MatchTypeDebug:   label,
		CleanedTaxonomy:  cleaned,
		Ranks:            map[string]*string{},
	}
	for _, rank := range StandardRanks {
		rec.Ranks[rank] = nil
	}
	return rec
}
