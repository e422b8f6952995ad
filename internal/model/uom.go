package model

// UoM is a canonical unit-of-measure code. The vocabulary is closed: any
// code outside this set fails the LLM hallucination guard (§4.3) and is
// rejected by validation (UOM_INCOMPATIBLE).
type UoM string

const (
	UoMPiece    UoM = "ST"
	UoMMeter    UoM = "M"
	UoMCentiM   UoM = "CM"
	UoMMilliM   UoM = "MM"
	UoMKilogram UoM = "KG"
	UoMGram     UoM = "G"
	UoMLiter    UoM = "L"
	UoMMilliL   UoM = "ML"
	UoMCarton   UoM = "KAR"
	UoMPallet   UoM = "PAL"
	UoMSet      UoM = "SET"
)

var canonicalUoMs = map[UoM]bool{
	UoMPiece: true, UoMMeter: true, UoMCentiM: true, UoMMilliM: true,
	UoMKilogram: true, UoMGram: true, UoMLiter: true, UoMMilliL: true,
	UoMCarton: true, UoMPallet: true, UoMSet: true,
}

// IsCanonical reports whether u belongs to the closed UoM vocabulary.
func IsCanonical(u UoM) bool {
	return canonicalUoMs[u]
}

// UoMSynonyms maps lowercase DE/EN unit tokens to their canonical UoM,
// for the extractors' unit parsing and the LLM UoM guard. Keys are raw
// unit tokens.
var UoMSynonyms = map[string]UoM{
	"stk": UoMPiece, "stück": UoMPiece, "st": UoMPiece, "pc": UoMPiece, "pcs": UoMPiece, "piece": UoMPiece,
	"m": UoMMeter, "meter": UoMMeter, "meters": UoMMeter,
	"cm": UoMCentiM, "mm": UoMMilliM,
	"kg": UoMKilogram, "kilogramm": UoMKilogram,
	"g": UoMGram, "gramm": UoMGram,
	"l": UoMLiter, "liter": UoMLiter, "litre": UoMLiter,
	"ml": UoMMilliL,
	"kar": UoMCarton, "karton": UoMCarton, "carton": UoMCarton, "ktn": UoMCarton,
	"pal": UoMPallet, "palette": UoMPallet, "pallet": UoMPallet,
	"set": UoMSet, "satz": UoMSet,
}
