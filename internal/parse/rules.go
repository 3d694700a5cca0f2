package parse

// Rules is the extraction vocabulary the dispatcher consumes: data, not
// behavior. Supplied at construction (no globals); DefaultRules matches
// the production deployment.
type Rules struct {
	// FallbackRegions are the region names scanned for "name: count"
	// pairs across the whole message when a structured summary carries no
	// recognizable cluster section.
	FallbackRegions []string `yaml:"fallback_regions"`

	// ShiftRegions is the region/zone vocabulary of DAY shift-allocation
	// messages.
	ShiftRegions []string `yaml:"shift_regions"`
}

// DefaultRules returns the vocabulary observed in production traffic.
func DefaultRules() Rules {
	return Rules{
		FallbackRegions: []string{
			"Minas Gerais", "Rio de Janeiro", "Rio", "Bahia", "Sergipe", "Bahia / Sergipe",
			"Espirito Santo", "Espírito Santo", "Vitoria", "Vitória", "Centro Oeste",
			"Centro-Oeste", "Norte", "Nordeste", "Goias", "Goiás", "Amazonas", "Para", "Pará",
			"Rio / Espirito Santo", "Rio / Espírito Santo", "Grande Rio", "Rio Capital",
		},
		ShiftRegions: []string{
			"NORTE", "SUL", "METROPOLITANA", "OESTE", "BAIXADA", "LESTE", "CENTRO",
			"ZONA NORTE", "ZONA SUL", "ZONA OESTE", "ZONA LESTE", "GRANDE RIO",
			"NITERÓI", "NITEROI",
		},
	}
}
