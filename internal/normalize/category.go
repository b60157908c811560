package normalize

import "github.com/notwins/backend/internal/domain"

// Category keys.
const (
	CategoryClothes     = "clothes"
	CategoryAccessories = "accessories"
	SubcategoryOther    = "other"
)

type subcategory struct {
	key      string
	display  string
	keywords []string
}

type category struct {
	key           string
	display       string
	keywords      []string
	subcategories []subcategory
}

// taxonomy is ordered: the first subcategory whose keyword matches wins, so more
// specific garments (dresses, jumpsuits) sit ahead of generic ones (knitwear, tops).
var taxonomy = []category{
	{
		key:      CategoryClothes,
		display:  "Clothes",
		keywords: []string{"clothing", "clothes", "apparel", "garment", "ropa", "prenda", "vetement", "kleidung", "abbigliamento"},
		subcategories: []subcategory{
			{"dresses", "Dresses", []string{"dress", "vestido", "robe", "kleid", "abito", "vestito", "gown", "minidress", "midi dress", "maxi dress"}},
			{"jumpsuits", "Jumpsuits", []string{"jumpsuit", "mono", "peto", "playsuit", "romper", "combinaison", "overall", "tuta", "jumpsuit corto"}},
			{"skirts", "Skirts", []string{"skirt", "falda", "minifalda", "jupe", "minirock", "faltenrock", "jeansrock", "gonna", "minigonna", "skort"}},
			{"jeans", "Jeans", []string{"jeans", "jean", "vaquero", "vaqueros", "tejano", "tejanos", "jeggings"}},
			{"trousers", "Trousers", []string{"trousers", "pants", "pantalon", "pantalones", "hosen", "pantaloni", "chino", "chinos", "leggings", "culotte", "palazzo", "jogger", "joggers", "cargo"}},
			{"shorts", "Shorts", []string{"shorts", "short", "bermuda", "bermudas", "pantalon corto", "pantaloncini"}},
			{"blazers", "Blazers", []string{"blazer", "americana", "sakko"}},
			{"coats_jackets", "Coats & Jackets", []string{"coat", "jacket", "abrigo", "chaqueta", "cazadora", "parka", "trench", "gabardina", "plumifero", "anorak", "bomber", "chaleco", "gilet", "vest", "manteau", "veste", "blouson", "doudoune", "mantel", "jacke", "cappotto", "giacca", "giubbotto", "piumino", "overshirt", "sobrecamisa"}},
			{"knitwear", "Knitwear", []string{"sweater", "jumper", "pullover", "cardigan", "knit", "knitted", "knitwear", "jersey", "punto", "rebeca", "pull", "tricot", "strick", "strickjacke", "maglione", "maglia"}},
			{"sweatshirts", "Sweatshirts", []string{"sweatshirt", "hoodie", "sudadera", "sweat", "felpa", "kapuzenpullover"}},
			{"tshirts_tops", "T-Shirts & Tops", []string{"t shirt", "tshirt", "tee", "top", "crop top", "tank top", "camiseta", "tirantes", "body", "bodysuit", "debardeur", "haut court", "haut a bretelles", "oberteil", "canotta", "maglietta", "polo"}},
			{"shirts_blouses", "Shirts & Blouses", []string{"shirt", "blouse", "camisa", "blusa", "chemise", "chemisier", "hemd", "bluse", "camicia", "camicetta", "tunic", "tunica"}},
			{"suits", "Suits", []string{"suit", "traje", "costume", "anzug", "completo", "tailleur"}},
			{"swimwear", "Swimwear", []string{"swimwear", "swimsuit", "bikini", "trikini", "banador", "maillot de bain", "maillot", "badeanzug", "costume da bagno"}},
			{"lingerie", "Lingerie", []string{"lingerie", "bra", "bralette", "sujetador", "braga", "braguita", "lenceria", "soutien gorge", "bh", "reggiseno", "pijama", "pyjama", "camison"}},
			{"sportswear", "Sportswear", []string{"sportswear", "tracksuit", "chandal", "survetement", "trainingsanzug", "activewear"}},
		},
	},
	{
		key:      CategoryAccessories,
		display:  "Accessories",
		keywords: []string{"accessory", "accessories", "accesorio", "complemento", "accessoire", "zubehor", "accessorio", "accessori"},
		subcategories: []subcategory{
			{"shoes", "Shoes", []string{"shoe", "zapato", "zapatilla", "deportiva", "sneaker", "trainer", "boot", "bota", "botin", "sandal", "sandalia", "heel", "tacon", "mule", "loafer", "mocasin", "bailarina", "manoletina", "espadrille", "alpargata", "chaussure", "basket", "botte", "bottine", "escarpin", "sandale", "schuh", "schuhe", "stiefel", "stiefelette", "pumps", "scarpa", "scarpe", "stivale", "stivali", "sandalo", "sandali", "clog", "zueco"}},
			{"bags", "Bags", []string{"bag", "handbag", "bolso", "bolsa", "tote", "clutch", "backpack", "mochila", "rinonera", "bandolera", "shopper", "purse", "cartera", "sac", "sac a main", "sacoche", "pochette", "tasche", "handtasche", "rucksack", "borsa", "borsetta", "zaino"}},
			{"jewelry", "Jewelry", []string{"jewelry", "jewellery", "necklace", "earring", "bracelet", "ring", "brooch", "collar", "pendiente", "pulsera", "anillo", "broche", "joya", "bisuteria", "collier", "bague", "boucle d oreille", "halskette", "ohrringe", "armband", "collana", "orecchini", "bracciale", "anello"}},
			{"belts", "Belts", []string{"belt", "cinturon", "ceinture", "gurtel", "cintura"}},
			{"hats", "Hats", []string{"hat", "cap", "beanie", "beret", "sombrero", "gorra", "gorro", "boina", "chapeau", "casquette", "bonnet", "mutze", "cappello", "berretto", "bucket hat"}},
			{"scarves", "Scarves", []string{"scarf", "scarves", "shawl", "bufanda", "panuelo", "foulard", "fular", "echarpe", "schal", "sciarpa", "chal"}},
			{"sunglasses", "Sunglasses", []string{"sunglasses", "gafas de sol", "gafas", "lunettes de soleil", "lunettes", "sonnenbrille", "occhiali da sole", "occhiali"}},
			{"watches", "Watches", []string{"watch", "reloj", "montre", "armbanduhr", "orologio"}},
			{"hair_accessories", "Hair Accessories", []string{"scrunchie", "coletero", "diadema", "headband", "hair clip", "pinza", "horquilla", "barrette", "haarreif", "haarspange", "fermaglio", "cerchietto"}},
		},
	},
}

// DetectCategory classifies free text (name plus description) into the taxonomy.
// Subcategory keywords are tried across every category before any category-level
// keyword; text that matches nothing is clothes/other.
func DetectCategory(text string) domain.ProductType {
	folded := Fold(text)
	if folded != "" {
		for _, cat := range taxonomy {
			for _, sub := range cat.subcategories {
				for _, kw := range sub.keywords {
					if containsKeyword(folded, kw) {
						return domain.ProductType{Category: cat.key, Subcategory: sub.key, DisplayName: sub.display}
					}
				}
			}
		}
		for _, cat := range taxonomy {
			for _, kw := range cat.keywords {
				if containsKeyword(folded, kw) {
					return otherOf(cat)
				}
			}
		}
	}
	return otherOf(taxonomy[0])
}

// LookupType resolves category and subcategory keys (as returned by a model) against
// the taxonomy. ok is false when the category is unknown.
func LookupType(categoryKey, subcategoryKey string) (domain.ProductType, bool) {
	categoryKey, subcategoryKey = Fold(categoryKey), Fold(subcategoryKey)
	for _, cat := range taxonomy {
		if cat.key != categoryKey {
			continue
		}
		for _, sub := range cat.subcategories {
			if Fold(sub.key) == subcategoryKey || Fold(sub.display) == subcategoryKey {
				return domain.ProductType{Category: cat.key, Subcategory: sub.key, DisplayName: sub.display}, true
			}
		}
		return otherOf(cat), true
	}
	return domain.ProductType{}, false
}

func otherOf(cat category) domain.ProductType {
	return domain.ProductType{Category: cat.key, Subcategory: SubcategoryOther, DisplayName: "Other " + cat.display}
}
