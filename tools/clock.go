// Time tools: current time by location or IANA zone, bulk lookups per
// region, and offset comparison between two places.

package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"
)

// locationTZ maps normalized city/region/country names to IANA zones.
// Lookup is by whole word (single-word keys) or substring (multi-word keys).
var locationTZ = map[string]string{
	"brasilia": "America/Sao_Paulo", "sao paulo": "America/Sao_Paulo",
	"rio de janeiro": "America/Sao_Paulo", "manaus": "America/Manaus",
	"fortaleza": "America/Fortaleza", "recife": "America/Recife",
	"fernando de noronha": "America/Noronha", "acre": "America/Rio_Branco",
	"brasil": "America/Sao_Paulo", "brazil": "America/Sao_Paulo",

	"lisboa": "Europe/Lisbon", "portugal": "Europe/Lisbon",
	"londres": "Europe/London", "london": "Europe/London",
	"paris": "Europe/Paris", "franca": "Europe/Paris", "france": "Europe/Paris",
	"madri": "Europe/Madrid", "espanha": "Europe/Madrid", "spain": "Europe/Madrid",
	"berlim": "Europe/Berlin", "alemanha": "Europe/Berlin", "germany": "Europe/Berlin",
	"roma": "Europe/Rome", "italia": "Europe/Rome", "italy": "Europe/Rome",
	"moscou": "Europe/Moscow", "russia": "Europe/Moscow",

	"nova york": "America/New_York", "new york": "America/New_York",
	"washington": "America/New_York", "miami": "America/New_York",
	"chicago": "America/Chicago", "los angeles": "America/Los_Angeles",
	"estados unidos": "America/New_York", "eua": "America/New_York",
	"canada": "America/Toronto", "toronto": "America/Toronto",
	"mexico": "America/Mexico_City", "cuba": "America/Havana",
	"argentina": "America/Argentina/Buenos_Aires",
	"buenos aires": "America/Argentina/Buenos_Aires",
	"chile": "America/Santiago", "santiago": "America/Santiago",
	"colombia": "America/Bogota", "bogota": "America/Bogota",
	"peru": "America/Lima", "lima": "America/Lima",
	"uruguai": "America/Montevideo", "paraguai": "America/Asuncion",
	"bolivia": "America/La_Paz", "venezuela": "America/Caracas",
	"equador": "America/Guayaquil", "panama": "America/Panama",
	"guatemala": "America/Guatemala", "honduras": "America/Tegucigalpa",
	"nicaragua": "America/Managua", "costa rica": "America/Costa_Rica",
	"el salvador": "America/El_Salvador", "belize": "America/Belize",
	"haiti": "America/Port-au-Prince", "jamaica": "America/Jamaica",
	"bahamas": "America/Nassau", "barbados": "America/Barbados",
	"republica dominicana": "America/Santo_Domingo",
	"trinidad e tobago": "America/Port_of_Spain",
	"groenlandia": "America/Nuuk",

	"toquio": "Asia/Tokyo", "tokyo": "Asia/Tokyo", "japao": "Asia/Tokyo",
	"china": "Asia/Shanghai", "pequim": "Asia/Shanghai", "xangai": "Asia/Shanghai",
	"india": "Asia/Kolkata", "coreia do sul": "Asia/Seoul", "seul": "Asia/Seoul",
	"dubai": "Asia/Dubai", "singapura": "Asia/Singapore",
	"australia": "Australia/Sydney", "sydney": "Australia/Sydney",
	"nova zelandia": "Pacific/Auckland",
	"egito": "Africa/Cairo", "cairo": "Africa/Cairo",
	"africa do sul": "Africa/Johannesburg", "nigeria": "Africa/Lagos",
	"quenia": "Africa/Nairobi", "marrocos": "Africa/Casablanca",
	"antartica": "Antarctica/Palmer",
}

var utcOffsetRe = regexp.MustCompile(`\b(?:utc|gmt)\s*([+-])\s*(\d{1,2})(?::?(\d{2}))?\b`)

// worldTimeAPIBase is a var so tests can point the online check at a local
// server.
var worldTimeAPIBase = "https://worldtimeapi.org/api/timezone"

func (tb *Toolbox) clockSpecs() []Spec {
	return []Spec{
		{
			Name:        "sys.time",
			Description: "Data e hora atuais para um local ou fuso",
			Params:      map[string]string{"tz": "str?", "location": "str?", "verify_online": "bool?"},
			Func:        tb.sysTime,
		},
		{
			Name:        "sys.time.bulk",
			Description: "Data e hora para os países de uma ou mais regiões",
			Params:      map[string]string{"region": "list[str]?", "countries": "list[str]?", "verify_online": "bool?"},
			Func:        tb.sysTimeBulk,
		},
		{
			Name:        "sys.time.diff",
			Description: "Diferença de horário entre dois locais ou fusos",
			Params:      map[string]string{"tz1": "str?", "tz2": "str?", "loc1": "str?", "loc2": "str?", "verify_online": "bool?"},
			Func:        tb.sysTimeDiff,
		},
	}
}

// normalizeText lowercases and strips accents so "São Paulo" matches
// "sao paulo". Shared with the geo tools and the heuristic engine.
func normalizeText(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' || r == '-':
			sb.WriteRune(r)
		case unicode.Is(unicode.Latin, r):
			sb.WriteRune(stripAccent(r))
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func stripAccent(r rune) rune {
	switch r {
	case 'á', 'à', 'â', 'ã', 'ä':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'õ', 'ö':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	case 'ñ':
		return 'n'
	default:
		return r
	}
}

// TZFromLocation resolves a free-form place name to an IANA zone name.
func TZFromLocation(q string) (string, bool) {
	qn := normalizeText(q)
	words := map[string]bool{}
	for _, w := range strings.Fields(qn) {
		words[w] = true
	}
	for key, tz := range locationTZ {
		if strings.Contains(key, " ") {
			if strings.Contains(qn, key) {
				return tz, true
			}
		} else if len(key) > 1 && words[key] {
			return tz, true
		}
	}
	if m := utcOffsetRe.FindStringSubmatch(qn); m != nil {
		hours, _ := strconv.Atoi(m[2])
		if m[1] == "-" {
			hours = -hours
		}
		// Etc/GMT zones use inverted signs per the IANA convention.
		return fmt.Sprintf("Etc/GMT%+d", -hours), true
	}
	return "", false
}

// timeOnline cross-checks a zone against worldtimeapi.org. Errors fold into
// the block itself; the check never fails the surrounding result.
func (tb *Toolbox) timeOnline(ctx context.Context, tz string) map[string]any {
	var data struct {
		Datetime     string `json:"datetime"`
		UTCOffset    string `json:"utc_offset"`
		Abbreviation string `json:"abbreviation"`
	}
	if err := tb.getJSON(ctx, worldTimeAPIBase+"/"+tz, &data); err != nil {
		return map[string]any{"source": "worldtimeapi.org", "error": err.Error()}
	}
	return map[string]any{
		"source":     "worldtimeapi.org",
		"datetime":   data.Datetime,
		"utc_offset": data.UTCOffset,
		"abbrev":     data.Abbreviation,
	}
}

func (tb *Toolbox) sysTime(ctx context.Context, args map[string]any) Result {
	var a struct {
		TZ           string `json:"tz"`
		Location     string `json:"location"`
		VerifyOnline bool   `json:"verify_online"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}

	resolvedFrom := ""
	if a.TZ == "" && a.Location != "" {
		tz, ok := TZFromLocation(a.Location)
		if !ok {
			return Fail("localização não reconhecida")
		}
		a.TZ = tz
		resolvedFrom = a.Location
	}

	loc := time.Local
	label := "local"
	if a.TZ != "" {
		parsed, err := time.LoadLocation(a.TZ)
		if err != nil {
			return Fail("fuso horário inválido")
		}
		loc = parsed
		label = a.TZ
	}

	now := time.Now().In(loc)
	extra := map[string]any{
		"iso":   now.Format(time.RFC3339),
		"texto": now.Format("02/01/2006 15:04:05 MST"),
		"tz":    label,
	}
	if resolvedFrom != "" {
		extra["resolved_from"] = resolvedFrom
	}
	if a.VerifyOnline && a.TZ != "" {
		extra["online"] = tb.timeOnline(ctx, a.TZ)
	}
	return OK(extra)
}

func (tb *Toolbox) sysTimeBulk(ctx context.Context, args map[string]any) Result {
	var a struct {
		Region       []string `json:"region"`
		Countries    []string `json:"countries"`
		VerifyOnline bool     `json:"verify_online"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}

	countries := map[string]bool{}
	for _, c := range a.Countries {
		if c = strings.TrimSpace(c); c != "" {
			countries[c] = true
		}
	}
	for _, region := range a.Region {
		for _, c := range countriesOf(region) {
			countries[c] = true
		}
	}
	if len(countries) == 0 {
		return Fail("nenhuma região ou país válido fornecido")
	}

	sorted := make([]string, 0, len(countries))
	for c := range countries {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	items := make([]map[string]any, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(10)
	for i, country := range sorted {
		g.Go(func() error {
			res := tb.sysTime(gctx, map[string]any{"location": country, "verify_online": a.VerifyOnline})
			item := map[string]any{"country": country, "ok": res.Ok}
			if res.Ok {
				item["texto"] = res.Extra["texto"]
				item["tz"] = res.Extra["tz"]
				item["iso"] = res.Extra["iso"]
			} else {
				item["error"] = res.Error
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()
	return OK(map[string]any{"items": items})
}

func (tb *Toolbox) sysTimeDiff(ctx context.Context, args map[string]any) Result {
	var a struct {
		TZ1          string `json:"tz1"`
		TZ2          string `json:"tz2"`
		Loc1         string `json:"loc1"`
		Loc2         string `json:"loc2"`
		VerifyOnline bool   `json:"verify_online"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}

	if a.TZ1 == "" && a.Loc1 != "" {
		a.TZ1, _ = TZFromLocation(a.Loc1)
	}
	if a.TZ2 == "" && a.Loc2 != "" {
		a.TZ2, _ = TZFromLocation(a.Loc2)
	}
	if a.TZ1 == "" || a.TZ2 == "" {
		return Fail("não foi possível resolver um dos fusos (origem/destino)")
	}

	z1, err := time.LoadLocation(a.TZ1)
	if err != nil {
		return Fail("fuso horário inválido")
	}
	z2, err := time.LoadLocation(a.TZ2)
	if err != nil {
		return Fail("fuso horário inválido")
	}

	now := time.Now()
	t1, t2 := now.In(z1), now.In(z2)
	_, off1 := t1.Zone()
	_, off2 := t2.Zone()
	deltaMin := (off2 - off1) / 60
	sign := "+"
	if deltaMin < 0 {
		sign = "-"
		deltaMin = -deltaMin
	}

	extra := map[string]any{
		"from":        map[string]any{"tz": a.TZ1, "texto": t1.Format("02/01/2006 15:04:05 MST"), "iso": t1.Format(time.RFC3339)},
		"to":          map[string]any{"tz": a.TZ2, "texto": t2.Format("02/01/2006 15:04:05 MST"), "iso": t2.Format(time.RFC3339)},
		"offset_diff": fmt.Sprintf("%s%02d:%02d", sign, deltaMin/60, deltaMin%60),
	}
	if a.VerifyOnline {
		extra["online_to"] = tb.timeOnline(ctx, a.TZ2)
	}
	return OK(extra)
}
