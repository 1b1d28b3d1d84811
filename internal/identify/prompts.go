package identify

const imageIdentPrompt = `Look at this image. The listing title says: "%s"

Identify what this item is as specifically as possible. Include:
- Brand name if visible
- Model name/number if visible
- Product type
- Any distinguishing features (year, size, color, edition)

Be as specific as possible. If you can identify the exact product, name it.
If you can only identify a general category, say so.

Respond with ONLY the product identification, nothing else.
Example good responses:
- "2024 American Silver Eagle 1oz BU coin"
- "Nintendo Switch OLED White"
- "EVGA RTX 3080 FTW3 Ultra graphics card"

Example bad responses (too vague):
- "A coin"
- "Gaming console"
- "Computer part"`

const specificityPrompt = `Is this search term SPECIFIC ENOUGH for sold-price comparison?

TERM: "%s"
CONTEXT: %s

SPECIFIC = has a recognizable BRAND/MANUFACTURER or PRODUCT LINE NAME
(something a company trademarked or produced, not just a category)

SPECIFIC (has brand/product line):
- "American Silver Eagle 2024" (US Mint product line)
- "Nintendo Switch OLED" (Nintendo product)
- "iPhone 13 Pro" (Apple product)
- "EVGA RTX 3080" (brand + model)
- "Morgan Dollar 1921" (historic US coin series)
- "Herman Miller Aeron Chair" (brand + product)

NOT SPECIFIC (just categories, no brand):
- "gaming storage tower" (what brand? just furniture)
- "silver coin" (which one?)
- "gaming console" (which brand?)
- "graphics card" (no brand/model)
- "laptop" (no brand)
- "office chair" (no brand)

KEY TEST: Would searching this term return items from ONE specific
manufacturer/product line, or a mix of different brands?

Answer ONLY:
YES or NO
REASON: [brief explanation]`

const synthesisPrompt = `Generate a resale search term from this listing:

%s

RULES:
- Extract the core product identity (what would you search for?)
- Keep brand + model/type if present
- Remove junk words: "must sell", "great deal", "OBO", locations, conditions like "like new"
- 2-6 words is ideal
- NEVER include "Unknown", "Unidentified", "Generic", or placeholder words
- If you can't identify the brand, just use the product type (e.g., "Gaming PC RTX 4080")

EXAMPLES:
- "iPhone 13 Pro 256GB Like New Pittsburgh" -> "iPhone 13 Pro 256GB"
- "1 oz American Silver Eagle 2024 BU in capsule" -> "American Silver Eagle 2024 1oz"
- "Nintendo Switch OLED White Must Sell" -> "Nintendo Switch OLED White"

Only respond CANNOT_IDENTIFY if the listing is truly unidentifiable
(e.g., "random stuff lot", "misc electronics"). Most listings with
product names ARE identifiable.

Respond with ONLY the search term:`

const multiItemPrompt = `Analyze this listing. Does it contain MULTIPLE DISTINCT ITEMS that should be priced separately?

%s

MULTI-ITEM examples:
- "Nintendo Switch + 3 games + Pro Controller" -> YES, 5 items
- "Lot of 5 silver coins: Morgan, Peace, Eagles" -> YES, 5 items
- "PS5 bundle with 2 controllers and 4 games" -> YES, multiple items
- "Gaming PC: RTX 4080, i9-13900K, 64GB RAM, 2TB NVMe" -> YES, extract each component!

PC/COMPUTER LISTINGS - IMPORTANT:
If a PC listing includes specs, list the PC FIRST, then extract EACH component:
1. The PC itself (e.g., "Gaming PC RTX 4080 i9-13900K 64GB")
2. CPU (e.g., "Intel Core i9-13900K")
3. GPU (e.g., "EVGA RTX 4080 FTW3 Ultra")
4. RAM (e.g., "Corsair Vengeance 64GB DDR5")
5. Storage (e.g., "Samsung 990 Pro 2TB NVMe")
6. Motherboard, PSU, Case, Cooler if mentioned

SINGLE ITEM examples:
- "iPhone 13 with case and charger" -> NO (accessories bundled)
- "Nintendo Switch OLED with dock" -> NO (dock is standard)
- "Gaming PC" (no specs listed) -> NO (can't extract components)

When listing items, be SPECIFIC with full product names, using info from
the title AND description.

Respond with:
MULTI_ITEM: YES or NO
ITEMS: [List each item with FULL SPECIFIC product name, one per line]`
