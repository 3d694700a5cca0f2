package domain

import "time"

// Kind identifies the message family a raw chat message belongs to.
type Kind string

const (
	KindSummary    Kind = "COP_REDE_INFORMA"
	KindAlert      Kind = "NOVO_EVENTO"
	KindShiftDay   Kind = "ALOCACAO_DIURNO"
	KindShiftNight Kind = "ALOCACAO_MADRUGADA"
	KindUnknown    Kind = "DESCONHECIDO"
)

// Alert status vocabulary, append-only history.
const (
	StatusNew      = "novo"
	StatusInReview = "em_analise"
	StatusResolved = "tratado"
)

// Message is the input contract from the messaging platform: the raw text,
// the platform's message id and the receipt instant. The parser never
// fetches messages itself.
type Message struct {
	ID         string
	Text       string
	ReceivedAt time.Time
}

// IncidentSummary is one parsed network-status summary message.
// Immutable after parse; superseded by newer records, never updated.
type IncidentSummary struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"messageId"`
	ReceivedAt  time.Time `json:"receivedAt"`
	ProcessedAt time.Time `json:"processedAt"`

	// GeneratedAt is the "generated at" instant as written in the message
	// (free text, several formats), empty when absent.
	GeneratedAt string `json:"generatedAt,omitempty"`

	// Format names the summary layout that produced this record
	// (legado, resumo, incidente, estruturado, empresarial).
	Format string `json:"format"`

	// Breakdowns holds the named category tallies extracted from the
	// message (mercado, tipo, natureza, sintoma, status, incidentes24h).
	// Counts are always > 0.
	Breakdowns map[string]map[string]int `json:"breakdowns,omitempty"`

	// Regions is the raw region-label tally, the field the dashboard
	// volumetrics derive from. RegionOrder preserves first appearance.
	Regions     map[string]int `json:"regions"`
	RegionOrder []string       `json:"regionOrder,omitempty"`

	TotalEvents  int            `json:"totalEvents"`
	Areas        []string       `json:"areas,omitempty"`
	VolumeByArea map[string]int `json:"volumeByArea,omitempty"`

	Description  string `json:"description,omitempty"`
	OriginalText string `json:"originalText,omitempty"`

	// Detail is set only by the single-incident emoji format.
	Detail *IncidentDetail `json:"detail,omitempty"`
}

// IncidentDetail carries the literal fields of the emoji single-incident
// summary layout.
type IncidentDetail struct {
	Title       string `json:"title,omitempty"`
	Reference   string `json:"reference,omitempty"`
	OpenedAt    string `json:"openedAt,omitempty"`
	City        string `json:"city,omitempty"`
	ReceivedAt  string `json:"receivedAt,omitempty"`
	Designation string `json:"designation,omitempty"`
	Impact      string `json:"impact,omitempty"`
	ImpactREC   int    `json:"impactRec,omitempty"`
	ImpactRAL   int    `json:"impactRal,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Alert is one parsed "new incident detected" message. Status is the only
// field mutated after creation (by the store, not the parser); every
// mutation appends to StatusHistory.
type Alert struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"messageId"`
	ReceivedAt  time.Time `json:"receivedAt"`
	ProcessedAt time.Time `json:"processedAt"`

	Ticket    string `json:"ticket,omitempty"`
	EventDate string `json:"eventDate,omitempty"`
	Type      string `json:"type,omitempty"`
	Market    string `json:"market,omitempty"`
	Symptom   string `json:"symptom,omitempty"`
	Nature    string `json:"nature,omitempty"`

	// Cluster is the raw region label as written; Area the canonical
	// panel area it resolved to, empty when unmapped.
	Cluster string `json:"cluster,omitempty"`
	Area    string `json:"area,omitempty"`

	Description   string         `json:"description,omitempty"`
	Status        string         `json:"status"`
	StatusHistory []StatusChange `json:"statusHistory"`
	OriginalText  string         `json:"originalText,omitempty"`
}

// StatusChange is one entry of an alert's append-only status history.
type StatusChange struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// Shift allocation variants.
const (
	VariantDay   = "DIURNO"
	VariantNight = "MADRUGADA"
)

// ShiftAllocation is one parsed technician-allocation message, DAY or
// NIGHT layout. Immutable; display-time selection between the two
// variants is the store's concern.
type ShiftAllocation struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"messageId"`
	Variant     string    `json:"variant"`
	Date        string    `json:"date,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt"`
	ProcessedAt time.Time `json:"processedAt"`

	// DAY layout: region name -> ordered roster.
	Regions     map[string][]ShiftEntry `json:"regions,omitempty"`
	RegionOrder []string                `json:"regionOrder,omitempty"`

	// NIGHT layout.
	Technicians []NightAssignment `json:"technicians,omitempty"`
	Lead        *Contact          `json:"lead,omitempty"`

	DayOffs      []string `json:"dayOffs,omitempty"`
	OriginalText string   `json:"originalText,omitempty"`
}

// ShiftEntry is one technician slot in a DAY region roster.
type ShiftEntry struct {
	Window     string `json:"window"`
	Technician string `json:"technician"`
	Phone      string `json:"phone,omitempty"`
	OnCall     bool   `json:"onCall,omitempty"`
}

// NightAssignment is one technician block of the NIGHT layout.
type NightAssignment struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Activity string `json:"activity,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Contact is a name/phone pair (NIGHT responsible party).
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// ParseFailure is the error-tagged record produced when a format parser
// panics: the message is preserved instead of blocking the batch.
type ParseFailure struct {
	ID           string    `json:"id"`
	MessageID    string    `json:"messageId"`
	OriginalText string    `json:"originalText"`
	ErrorMessage string    `json:"error"`
	ProcessedAt  time.Time `json:"processedAt"`
}

// Result is the dispatcher output: exactly one of the record pointers is
// set according to Kind. A nil *Result means the message was irrelevant.
type Result struct {
	Kind       Kind
	Summary    *IncidentSummary
	Alert      *Alert
	Allocation *ShiftAllocation
	Failure    *ParseFailure
}
