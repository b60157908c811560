package normalize

import (
	"sort"
	"strings"
)

type colorEntry struct {
	canonical string
	names     []string
}

// colorTable maps multilingual (en, es, fr, de, it) names onto the canonical palette.
var colorTable = []colorEntry{
	{"Black", []string{"black", "jet black", "negro", "negra", "noir", "noire", "schwarz", "nero", "nera", "preto"}},
	{"White", []string{"white", "optic white", "blanco", "blanca", "blanc", "blanche", "weiss", "bianco", "bianca"}},
	{"Grey", []string{"grey", "gray", "gris", "grau", "grigio", "grigia", "heather grey", "grey marl", "gris jaspeado"}},
	{"Light Grey", []string{"light grey", "light gray", "pale grey", "gris claro", "gris clair", "hellgrau", "grigio chiaro"}},
	{"Charcoal", []string{"charcoal", "anthracite", "antracita", "anthrazit", "antracite", "dark grey", "dark gray", "gris oscuro", "gris marengo", "marengo", "gris fonce", "dunkelgrau", "grigio scuro"}},
	{"Silver", []string{"silver", "plata", "plateado", "plateada", "argent", "argente", "silber", "argento"}},
	{"Navy Blue", []string{"navy", "navy blue", "dark navy", "azul marino", "marino", "bleu marine", "marine", "marineblau", "dunkelblau", "blu navy", "blu marino", "blu scuro"}},
	{"Blue", []string{"blue", "royal blue", "azul", "bleu", "blau", "blu", "azul klein", "cobalt", "cobalto"}},
	{"Light Blue", []string{"light blue", "sky blue", "baby blue", "pale blue", "azul claro", "azul cielo", "celeste", "bleu clair", "bleu ciel", "hellblau", "azzurro", "azzurra"}},
	{"Denim", []string{"denim", "denim blue", "indigo", "azul denim", "azul indigo", "jeansblau"}},
	{"Turquoise", []string{"turquoise", "turquesa", "turkis", "turchese", "aqua", "aguamarina"}},
	{"Teal", []string{"teal", "verde azulado", "petrol", "petroleo", "petrolio", "bleu canard", "canard"}},
	{"Green", []string{"green", "verde", "vert", "verte", "grun", "emerald", "esmeralda"}},
	{"Dark Green", []string{"dark green", "bottle green", "forest green", "verde oscuro", "verde botella", "vert fonce", "vert bouteille", "dunkelgrun", "verde scuro"}},
	{"Olive Green", []string{"olive", "olive green", "oliva", "verde oliva", "vert olive", "olivgrun", "verde militar", "militar"}},
	{"Mint Green", []string{"mint", "mint green", "menta", "verde menta", "verde agua", "vert menthe", "mintgrun"}},
	{"Khaki", []string{"khaki", "kaki", "caqui", "cachi"}},
	{"Yellow", []string{"yellow", "amarillo", "amarilla", "jaune", "gelb", "giallo", "gialla", "lemon", "limon"}},
	{"Mustard", []string{"mustard", "mostaza", "moutarde", "senf", "senape", "ocre", "ochre", "ocra"}},
	{"Gold", []string{"gold", "golden", "dorado", "dorada", "dore", "doree", "goldfarben", "oro"}},
	{"Orange", []string{"orange", "naranja", "arancione", "arancio"}},
	{"Coral", []string{"coral", "corail", "koralle", "corallo"}},
	{"Terracotta", []string{"terracotta", "terracota", "teja", "rust", "oxido", "rouille", "rostrot"}},
	{"Red", []string{"red", "rojo", "roja", "rouge", "rot", "rosso", "rossa", "scarlet", "escarlata"}},
	{"Burgundy", []string{"burgundy", "maroon", "wine", "granate", "burdeos", "vino", "bordeaux", "bordo", "bordeauxrot", "weinrot", "granata"}},
	{"Pink", []string{"pink", "rosa", "rose", "rosado", "rosada", "pale pink", "rosa palo", "rosa claro", "rose pale", "blush"}},
	{"Fuchsia", []string{"fuchsia", "fucsia", "magenta", "hot pink", "rosa fucsia"}},
	{"Purple", []string{"purple", "morado", "morada", "purpura", "violeta", "violet", "violette", "purpur", "viola"}},
	{"Lilac", []string{"lilac", "lila", "lilas", "lavender", "lavanda", "lavande", "lavendel"}},
	{"Mauve", []string{"mauve", "malva"}},
	{"Brown", []string{"brown", "marron", "braun", "marrone", "chocolate", "chocolat", "cioccolato", "dark brown", "marron oscuro"}},
	{"Camel", []string{"camel", "camello", "cammello", "cognac", "conac"}},
	{"Tan", []string{"tan", "tostado", "caramel", "caramelo", "caramello", "toffee"}},
	{"Beige", []string{"beige", "arena", "sand", "sable", "sabbia", "stone", "piedra", "greige"}},
	{"Cream", []string{"cream", "off white", "offwhite", "crema", "crudo", "cruda", "blanco roto", "ecru", "creme", "panna"}},
	{"Ivory", []string{"ivory", "marfil", "ivoire", "elfenbein", "avorio"}},
	{"Nude", []string{"nude", "maquillaje", "hautfarben", "nudo"}},
	{"Taupe", []string{"taupe", "topo", "talpa", "visón", "vison"}},
	{"Salmon", []string{"salmon", "saumon", "lachs", "salmone"}},
	{"Multicolor", []string{"multicolor", "multicolour", "multi color", "multicolore", "mehrfarbig", "bunt", "varios colores", "rainbow"}},
	{"Print", []string{"print", "printed", "estampado", "estampada", "imprime", "stampato", "stampa", "gemustert", "floral", "animal print"}},
}

var (
	colorIndex map[string]string
	// colorKeys holds every folded name ordered longest first
	colorKeys []string
)

func init() {
	colorIndex = make(map[string]string)
	for _, entry := range colorTable {
		colorIndex[Fold(entry.canonical)] = entry.canonical
		for _, name := range entry.names {
			key := Fold(name)
			if _, exists := colorIndex[key]; !exists {
				colorIndex[key] = entry.canonical
			}
		}
	}
	colorKeys = make([]string, 0, len(colorIndex))
	for key := range colorIndex {
		colorKeys = append(colorKeys, key)
	}
	sort.Slice(colorKeys, func(i, j int) bool {
		if len(colorKeys[i]) != len(colorKeys[j]) {
			return len(colorKeys[i]) > len(colorKeys[j])
		}
		return colorKeys[i] < colorKeys[j]
	})
}

// CanonicalColor maps a retailer color label onto the canonical palette. Unknown labels
// come back lowercased and trimmed rather than dropped; blank input yields "".
func CanonicalColor(raw string) string {
	trimmed := CleanText(raw)
	if trimmed == "" {
		return ""
	}
	folded := Fold(trimmed)
	if canonical, ok := colorIndex[folded]; ok {
		return canonical
	}
	if canonical := matchColorPhrase(folded); canonical != "" {
		return canonical
	}
	// substring pass catches glued compounds such as "azulado" or "dunkelrot"
	for _, key := range colorKeys {
		if len(key) >= 4 && strings.Contains(folded, key) {
			return colorIndex[key]
		}
	}
	return strings.ToLower(trimmed)
}

// DetectColor looks for a known color name inside free text (a product name or
// description) and returns its canonical form, or "" when none is present.
func DetectColor(text string) string {
	return matchColorPhrase(Fold(text))
}

// IsCanonicalColor reports whether c is one of the palette names.
func IsCanonicalColor(c string) bool {
	for _, entry := range colorTable {
		if entry.canonical == c {
			return true
		}
	}
	return false
}

// matchColorPhrase returns the color named earliest in folded text, preferring the
// longer phrase when two start at the same word ("azul marino" over "azul").
func matchColorPhrase(folded string) string {
	if folded == "" {
		return ""
	}
	padded := " " + folded + " "
	best, bestPos := "", -1
	for _, key := range colorKeys {
		pos := strings.Index(padded, " "+key+" ")
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos {
			best, bestPos = key, pos
		}
	}
	if best == "" {
		return ""
	}
	return colorIndex[best]
}
