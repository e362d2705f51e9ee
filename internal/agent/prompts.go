package agent

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/agrod/internal/record"
)

// creationPrompt asks the model for a structured extraction of the
// farmer's described activity.
func creationPrompt(query string) string {
	return fmt.Sprintf(`Eres un asistente agrícola experto que ayuda a formatear registros agrícolas para almacenarlos en blockchain.

El agricultor desea crear un registro con la siguiente información: %q

Extrae y formatea la información agrícola relevante en formato JSON estructurado con los siguientes campos:
- activityType: tipo de actividad (siembra, cosecha, fertilización, riego, etc.)
- description: descripción detallada de la actividad
- location: ubicación donde se realizó (si se menciona)
- crops: cultivos involucrados
- date: fecha de la actividad (formateada como YYYY-MM-DD)
- time: hora de la actividad (si se menciona)
- notes: notas adicionales relevantes

Solo devuelve el JSON formateado, sin explicaciones adicionales.`, query)
}

// analysisPrompt embeds the digest of stored entries alongside the
// farmer's question.
func analysisPrompt(query string, entries []record.Entry) string {
	return fmt.Sprintf(`Eres un asistente agrícola experto que analiza registros agrícolas almacenados en blockchain.

El agricultor ha realizado la siguiente consulta sobre sus registros: %q

A continuación se presentan los registros disponibles:
%s

Analiza estos registros para responder a la consulta del agricultor. Puedes:
- Proporcionar estadísticas y tendencias
- Resumir actividades por tipo o cultivo
- Identificar patrones o problemas
- Sugerir mejoras en base a las prácticas observadas

Responde de forma clara y concisa, organizando la información de manera útil para el agricultor.`, query, Digest(entries))
}

// genericPrompt is the fixed advice persona, with a note appended when
// stored records exist in context.
func genericPrompt(hasRecords bool) string {
	prompt := `Eres un asistente agrícola experto que ayuda a los agricultores colombianos a mejorar sus prácticas agrícolas.
Ofrece respuestas concisas y prácticas sobre cultivos, técnicas agrícolas y gestión de fincas.
Si la pregunta está relacionada con el registro o la consulta de datos de cultivos,
indícalo en tu respuesta sugiriendo el uso de la función de registro en la cadena de bloques Hedera.
Recomienda buenas prácticas agrícolas sostenibles y enfócate en cultivos relevantes para Colombia.`

	if hasRecords {
		prompt += "\n\nEl agricultor tiene registros almacenados en blockchain que puede consultar para análisis."
	}
	return prompt
}

// Digest renders decoded entries as a numbered, field-labeled digest
// for inclusion in analysis prompts.
func Digest(entries []record.Entry) string {
	var b strings.Builder

	n := 0
	for _, entry := range entries {
		switch entry.Kind {
		case record.KindRecord:
			n++
			r := entry.Record
			fmt.Fprintf(&b, "Registro #%d (%s):\n", n, entry.StoredAt.Format("2006-01-02"))
			fmt.Fprintf(&b, "- Tipo: %s\n", r.ActivityType)
			fmt.Fprintf(&b, "- Descripción: %s\n", r.Description)
			fmt.Fprintf(&b, "- Cultivos: %s\n", r.Crops)
			fmt.Fprintf(&b, "- Fecha de actividad: %s\n", r.Date)
			if r.Time != "" {
				fmt.Fprintf(&b, "- Hora: %s\n", r.Time)
			}
			if r.Location != "" {
				fmt.Fprintf(&b, "- Ubicación: %s\n", r.Location)
			}
			if r.Notes != "" {
				fmt.Fprintf(&b, "- Notas: %s\n", r.Notes)
			}
		case record.KindQuery:
			n++
			fmt.Fprintf(&b, "Consulta #%d (%s):\n", n, entry.StoredAt.Format("2006-01-02"))
			fmt.Fprintf(&b, "- Consulta: %s\n", entry.Query.Query)
		}
	}

	if b.Len() == 0 {
		return "No hay registros disponibles para analizar."
	}
	return b.String()
}

// creationSuccessAnswer builds the confirmation shown after a
// successful extraction.
func creationSuccessAnswer(r record.Record) string {
	var b strings.Builder
	b.WriteString("He formateado tu registro con éxito. Los siguientes datos se almacenarán en la blockchain de Hedera:\n\n")
	fmt.Fprintf(&b, "Tipo de actividad: %s\n", r.ActivityType)
	fmt.Fprintf(&b, "Descripción: %s\n", r.Description)
	fmt.Fprintf(&b, "Cultivos: %s\n", r.Crops)
	fmt.Fprintf(&b, "Fecha: %s\n", r.Date)
	if r.Time != "" {
		fmt.Fprintf(&b, "Hora: %s\n", r.Time)
	}
	if r.Location != "" {
		fmt.Fprintf(&b, "Ubicación: %s\n", r.Location)
	}
	if r.Notes != "" {
		fmt.Fprintf(&b, "Notas adicionales: %s\n", r.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// creationRetryAnswer is returned when the model's reply cannot be
// parsed into a record.
const creationRetryAnswer = `No pude formatear correctamente tu registro. Por favor, proporciona los detalles de forma más clara, incluyendo qué actividad realizaste, qué cultivos estaban involucrados y cuándo ocurrió.`

// helpAnswer is the fixed capability summary; the help path makes no
// external calls.
const helpAnswer = `# 🌱 AgroHedera - Asistente Agrícola con Blockchain

## ¿Qué puedo hacer por ti?

### 📝 Crear registros agrícolas
Puedes decirme que quieres crear un registro y describir la actividad. Por ejemplo:
- "Quiero registrar que hoy sembré maíz en la parcela norte"
- "Crea un registro de la cosecha de café que hice ayer"
- "Registra que apliqué fertilizante orgánico esta mañana"

### 💬 Consultas agrícolas
Puedo responder preguntas sobre:
- Técnicas de cultivo
- Manejo de plagas
- Fertilización
- Riego
- Cosecha
- Almacenamiento de productos

### 📊 Análisis de datos
Puedo analizar tus registros almacenados:
- "Muestra un resumen de mis registros de siembra"
- "¿Cuántas veces apliqué fertilizante este mes?"
- "Analiza mis patrones de riego"
- "Dame estadísticas sobre los cultivos registrados"

### 📊 Visualización de registros
Puedes ver todos tus registros guardados en la blockchain usando el botón "Cargar Registros".

### 🔗 Gestión de topics de Hedera
Tus registros se guardan en un topic de Hedera:
- Puedes usar uno existente o crear uno nuevo
- Toda la información importante se guarda de forma segura en la blockchain de Hedera

Los datos almacenados en blockchain garantizan la trazabilidad e inmutabilidad de tus registros agrícolas.`
