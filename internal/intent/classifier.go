// Package intent classifies incoming queries by keyword matching.
//
// Classification is a fixed, ordered rule set evaluated over the
// lowercased query. The order is a behavioral contract: help
// short-circuits everything, record creation beats record analysis,
// and analysis only applies when decoded records are available in
// context. Storage-worthiness is an independent second classifier,
// orthogonal to creation intent.
//
// The keyword lists merge the Spanish and English deployments so one
// binary serves both.
package intent

import "strings"

// Classification labels a query's detected intent.
type Classification int

const (
	Generic Classification = iota
	Help
	RecordCreation
	RecordAnalysis
)

// String returns the label name.
func (c Classification) String() string {
	switch c {
	case Help:
		return "help"
	case RecordCreation:
		return "record_creation"
	case RecordAnalysis:
		return "record_analysis"
	default:
		return "generic"
	}
}

var helpKeywords = []string{
	"ayuda", "help", "qué puedes hacer", "que puedes hacer",
	"comandos", "funciones", "capacidades",
	"what can you do", "commands", "capabilities",
}

var creationKeywords = []string{
	"crear registro", "crear un registro", "registrar", "anotar",
	"guardar", "almacenar", "tomar nota", "documentar", "apuntar",
	"create a record", "create record", "log that", "note down",
	"save", "store", "document",
}

var analysisKeywords = []string{
	"analiza", "analizar", "resumen", "resumir", "estadísticas", "estadística",
	"tendencia", "tendencias", "patrones", "patrón", "historial", "historia",
	"registros", "registro", "datos", "dato", "información", "comparar",
	"comparación", "evaluar", "evaluación", "reportar", "reporte",
	"mostrar mis", "ver mis", "cuándo", "cuando", "cuántas veces", "cuantas veces",
	"qué he", "que he", "cuál es", "cual es", "dime si", "cuánto", "cuanto",
	"analyze", "summary", "statistics", "trend", "pattern",
	"history", "record", "data", "information", "compare",
	"evaluate", "report", "show my", "view my", "when",
	"how many times", "what have i", "what is", "tell me",
}

var storageKeywords = []string{
	"registrar", "guardar", "almacenar", "anotar", "documentar",
	"cosecha", "siembra", "fertilización", "riego", "cultivo",
	"save", "store", "note down", "harvest", "planting", "sowing",
	"fertilization", "irrigation", "crop",
}

// Classify labels the query. hasRecords reports whether decoded
// records are available in context; without them the analysis rule is
// skipped entirely.
func Classify(query string, hasRecords bool) Classification {
	q := strings.ToLower(query)

	switch {
	case matchesAny(q, helpKeywords):
		return Help
	case matchesAny(q, creationKeywords):
		return RecordCreation
	case hasRecords && matchesAny(q, analysisKeywords):
		return RecordAnalysis
	default:
		return Generic
	}
}

// IsAnalysisQuery reports whether the query matches the analysis list,
// independent of record availability. Used to decide whether fetching
// stored records is worth the network round trip before classifying.
func IsAnalysisQuery(query string) bool {
	return matchesAny(strings.ToLower(query), analysisKeywords)
}

// StorageWorthy reports whether a generic query should be logged to
// the ledger. Distinct list from creation intent: a question about
// harvesting is worth keeping even when it creates no record.
func StorageWorthy(query string) bool {
	return matchesAny(strings.ToLower(query), storageKeywords)
}

func matchesAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
