// Geography tools backed by static tables. Answers come straight from the
// tables; verify_online optionally attaches search result URLs as sources.

package tools

import (
	"context"
	"strings"
)

// regionAliases maps normalized region spellings (PT and EN) to the
// canonical keys of regionCountries.
var regionAliases = map[string]string{
	"america do norte": "norte",
	"north america":    "norte",
	"norte":            "norte",

	"america central": "central",
	"central america": "central",
	"central":         "central",

	"america do sul": "sul",
	"south america":  "sul",
	"sul":            "sul",

	"caribe":    "caribe",
	"caribbean": "caribe",

	"europa": "europa",
	"europe": "europa",

	"africa":           "africa",
	"africa continent": "africa",

	"asia": "asia",

	"oceania":               "oceania",
	"australia and oceania": "oceania",

	"antartica":  "antartica",
	"antarctica": "antartica",
}

// regionCountries lists sovereign countries per region, in Portuguese.
// Transcontinental countries appear under their usual continent; Rússia
// appears under both Europa and Ásia.
var regionCountries = map[string][]string{
	"norte": {"Canadá", "Estados Unidos", "México"},
	"central": {
		"Belize", "Costa Rica", "El Salvador", "Guatemala", "Honduras",
		"Nicarágua", "Panamá",
	},
	"sul": {
		"Argentina", "Bolívia", "Brasil", "Chile", "Colômbia", "Equador",
		"Guiana", "Paraguai", "Peru", "Suriname", "Uruguai", "Venezuela",
	},
	"caribe": {
		"Antígua e Barbuda", "Bahamas", "Barbados", "Cuba", "Dominica",
		"Granada", "Haiti", "Jamaica", "República Dominicana", "Santa Lúcia",
		"São Cristóvão e Nevis", "São Vicente e Granadinas", "Trinidad e Tobago",
	},
	"europa": {
		"Albânia", "Alemanha", "Andorra", "Áustria", "Bélgica", "Bielorrússia",
		"Bósnia e Herzegovina", "Bulgária", "Croácia", "Dinamarca", "Eslováquia",
		"Eslovênia", "Espanha", "Estônia", "Finlândia", "França", "Grécia",
		"Hungria", "Irlanda", "Islândia", "Itália", "Letônia", "Liechtenstein",
		"Lituânia", "Luxemburgo", "Malta", "Moldávia", "Mônaco", "Montenegro",
		"Noruega", "Países Baixos", "Polônia", "Portugal", "Reino Unido",
		"Chéquia", "Romênia", "Rússia", "San Marino", "Sérvia", "Suécia",
		"Suíça", "Ucrânia", "Vaticano", "Macedônia do Norte",
	},
	"africa": {
		"África do Sul", "Angola", "Argélia", "Benim", "Botsuana",
		"Burquina Fasso", "Burúndi", "Cabo Verde", "Camarões", "Chade",
		"Comores", "Congo", "Costa do Marfim", "Djibuti", "Egito", "Eritreia",
		"Eswatini", "Etiópia", "Gabão", "Gâmbia", "Gana", "Guiné",
		"Guiné Equatorial", "Guiné-Bissau", "Lesoto", "Libéria", "Líbia",
		"Madagascar", "Maláui", "Mali", "Marrocos", "Maurício", "Mauritânia",
		"Moçambique", "Namíbia", "Níger", "Nigéria", "Quênia",
		"República Centro-Africana", "República Democrática do Congo", "Ruanda",
		"São Tomé e Príncipe", "Seicheles", "Senegal", "Serra Leoa", "Somália",
		"Sudão", "Sudão do Sul", "Tanzânia", "Togo", "Tunísia", "Uganda",
		"Zâmbia", "Zimbábue",
	},
	"asia": {
		"Afeganistão", "Arábia Saudita", "Armênia", "Azerbaijão", "Bahrein",
		"Bangladesh", "Brunei", "Butão", "Camboja", "Catar", "Cazaquistão",
		"China", "Chipre", "Cingapura", "Coreia do Norte", "Coreia do Sul",
		"Emirados Árabes Unidos", "Filipinas", "Geórgia", "Iêmen", "Índia",
		"Indonésia", "Irã", "Iraque", "Israel", "Japão", "Jordânia", "Kuwait",
		"Laos", "Líbano", "Malásia", "Maldivas", "Mianmar", "Mongólia",
		"Nepal", "Omã", "Paquistão", "Quirguistão", "Rússia", "Síria",
		"Sri Lanka", "Tajiquistão", "Tailândia", "Timor-Leste",
		"Turcomenistão", "Turquia", "Uzbequistão", "Vietnã",
	},
	"oceania": {
		"Austrália", "Fiji", "Ilhas Marshall", "Ilhas Salomão", "Kiribati",
		"Micronésia", "Nauru", "Nova Zelândia", "Palau", "Papua-Nova Guiné",
		"Samoa", "Tonga", "Tuvalu", "Vanuatu",
	},
	"antartica": {},
}

var continentNames = []string{
	"África",
	"Antártica",
	"Ásia",
	"Europa",
	"América do Norte",
	"América do Sul",
	"Oceania",
}

// NormalizeRegion resolves a free-form region name to a canonical key.
// Unknown regions pass through normalized so callers can report them.
func NormalizeRegion(r string) string {
	n := normalizeText(r)
	if canon, ok := regionAliases[n]; ok {
		return canon
	}
	return n
}

// KnownRegion reports whether r names a region in the static tables.
func KnownRegion(r string) bool {
	_, ok := regionCountries[NormalizeRegion(r)]
	return ok
}

// countriesOf returns the country list for a region, empty when unknown.
func countriesOf(region string) []string {
	return regionCountries[NormalizeRegion(region)]
}

func (tb *Toolbox) geoSpecs() []Spec {
	return []Spec{
		{
			Name:        "geo.countries",
			Description: "Países de uma ou mais regiões/continentes",
			Params:      map[string]string{"region": "str|list[str]", "verify_online": "bool?"},
			Func:        tb.geoCountries,
		},
		{
			Name:        "geo.continents",
			Description: "Lista dos continentes do mundo",
			Params:      map[string]string{"verify_online": "bool?"},
			Func:        tb.geoContinents,
		},
	}
}

func (tb *Toolbox) geoCountries(ctx context.Context, args map[string]any) Result {
	var a struct {
		Region       []string `json:"region"`
		VerifyOnline bool     `json:"verify_online"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	var regions []string
	for _, r := range a.Region {
		if strings.TrimSpace(r) != "" {
			regions = append(regions, r)
		}
	}
	if len(regions) == 0 {
		return Fail("parâmetro 'region' obrigatório (string ou lista)")
	}

	out := make([]map[string]any, 0, len(regions))
	for _, r := range regions {
		key := NormalizeRegion(r)
		countries, ok := regionCountries[key]
		if !ok {
			out = append(out, map[string]any{"region": key, "ok": false, "error": "região desconhecida"})
			continue
		}
		item := map[string]any{"region": key, "ok": true, "countries": countries}
		if key == "antartica" {
			item["note"] = "Não há países soberanos na Antártica"
		}
		if a.VerifyOnline {
			item["sources"] = tb.searchSources(ctx, "site:wikipedia.org países da "+r)
		}
		out = append(out, item)
	}
	return OK(map[string]any{"regions": out})
}

func (tb *Toolbox) geoContinents(ctx context.Context, args map[string]any) Result {
	var a struct {
		VerifyOnline bool `json:"verify_online"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	extra := map[string]any{
		"continents": continentNames,
		"count":      len(continentNames),
	}
	if a.VerifyOnline {
		extra["sources"] = tb.searchSources(ctx, "site:wikipedia.org continentes do mundo")
	}
	return OK(extra)
}
