package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is one of a fixed closed set. The value is the label persisted in the ledger.
type Category string

const (
	CategoryGroceries     Category = "Market/Gıda"
	CategoryBill          Category = "Fatura"
	CategoryTransport     Category = "Ulaşım"
	CategoryHealth        Category = "Sağlık"
	CategoryEducation     Category = "Eğitim"
	CategoryEntertainment Category = "Eğlence"
	CategoryClothing      Category = "Giyim"
	CategoryTechnology    Category = "Teknoloji"
	CategoryRestaurant    Category = "Restoran/Kafe"
	CategoryBank          Category = "Banka İşlemi"
	CategoryOther         Category = "Diğer"
)

// FallbackColor fills rows whose category has no entry in the color table.
const FallbackColor = "F5F5F5"

// Categories lists the closed set in presentation order.
var Categories = []Category{
	CategoryGroceries, CategoryBill, CategoryTransport, CategoryHealth,
	CategoryEducation, CategoryEntertainment, CategoryClothing,
	CategoryTechnology, CategoryRestaurant, CategoryBank, CategoryOther,
}

var categoryColors = map[Category]string{
	CategoryGroceries:     "C8E6C9",
	CategoryBill:          "BBDEFB",
	CategoryTransport:     "FFE0B2",
	CategoryHealth:        "F8BBD9",
	CategoryEducation:     "E1BEE7",
	CategoryEntertainment: "FFF9C4",
	CategoryClothing:      "B2EBF2",
	CategoryTechnology:    "DCEDC8",
	CategoryRestaurant:    "FFCCBC",
	CategoryBank:          "CFD8DC",
	CategoryOther:         FallbackColor,
}

// English glossary names, accepted as aliases.
var categoryAliases = map[string]Category{
	"groceries/food":   CategoryGroceries,
	"groceries":        CategoryGroceries,
	"food":             CategoryGroceries,
	"bill":             CategoryBill,
	"invoice":          CategoryBill,
	"transport":        CategoryTransport,
	"health":           CategoryHealth,
	"education":        CategoryEducation,
	"entertainment":    CategoryEntertainment,
	"clothing":         CategoryClothing,
	"technology":       CategoryTechnology,
	"restaurant/cafe":  CategoryRestaurant,
	"restaurant":       CategoryRestaurant,
	"bank transaction": CategoryBank,
	"other":            CategoryOther,
}

var turkishLower = cases.Lower(language.Turkish)

// IsValid reports whether c belongs to the closed set.
func (c Category) IsValid() bool {
	_, ok := categoryColors[c]
	return ok
}

// Color returns the row fill for the category, FallbackColor when unmapped.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return FallbackColor
}

// ParseCategory maps a model or cell value onto the closed set.
// Unknown and empty values become CategoryOther.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther
	}
	if c := Category(s); c.IsValid() {
		return c
	}
	key := foldTurkish(s)
	for _, c := range Categories {
		if foldTurkish(string(c)) == key {
			return c
		}
	}
	if c, ok := categoryAliases[strings.ToLower(s)]; ok {
		return c
	}
	return CategoryOther
}

// foldTurkish lowercases with Turkish rules and strips the Turkish diacritics,
// so "Market/Gida", "MARKET/GIDA" and "Market/Gıda" compare equal.
func foldTurkish(s string) string {
	s = turkishLower.String(strings.TrimSpace(s))
	return strings.NewReplacer(
		"ı", "i", "ğ", "g", "ü", "u", "ş", "s", "ö", "o", "ç", "c", " ", "",
	).Replace(s)
}

// DocumentType classifies the photographed document.
type DocumentType string

const (
	DocumentReceipt  DocumentType = "receipt"
	DocumentInvoice  DocumentType = "invoice"
	DocumentBankSlip DocumentType = "bank-slip"
	DocumentVoucher  DocumentType = "voucher"
	DocumentOther    DocumentType = "other"
)

var documentTypes = map[string]DocumentType{
	"receipt":   DocumentReceipt,
	"fis":       DocumentReceipt,
	"invoice":   DocumentInvoice,
	"fatura":    DocumentInvoice,
	"bank-slip": DocumentBankSlip,
	"bankslip":  DocumentBankSlip,
	"dekont":    DocumentBankSlip,
	"voucher":   DocumentVoucher,
	"makbuz":    DocumentVoucher,
	"other":     DocumentOther,
	"diger":     DocumentOther,
}

// ParseDocumentType maps a model value onto the closed set. Empty stays empty.
func ParseDocumentType(s string) DocumentType {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if d, ok := documentTypes[foldTurkish(s)]; ok {
		return d
	}
	return DocumentOther
}

// PaymentMethod is how the expense was paid.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCreditCard   PaymentMethod = "credit-card"
	PaymentDebitCard    PaymentMethod = "debit-card"
	PaymentWireTransfer PaymentMethod = "wire-transfer"
	PaymentEFT          PaymentMethod = "EFT"
	PaymentOther        PaymentMethod = "other"
)

var paymentMethods = map[string]PaymentMethod{
	"cash":          PaymentCash,
	"nakit":         PaymentCash,
	"credit-card":   PaymentCreditCard,
	"creditcard":    PaymentCreditCard,
	"kredikarti":    PaymentCreditCard,
	"debit-card":    PaymentDebitCard,
	"debitcard":     PaymentDebitCard,
	"bankakarti":    PaymentDebitCard,
	"wire-transfer": PaymentWireTransfer,
	"wiretransfer":  PaymentWireTransfer,
	"havale":        PaymentWireTransfer,
	"eft":           PaymentEFT,
	"other":         PaymentOther,
	"diger":         PaymentOther,
}

// ParsePaymentMethod maps a model value onto the closed set. Empty stays empty.
func ParsePaymentMethod(s string) PaymentMethod {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if p, ok := paymentMethods[foldTurkish(s)]; ok {
		return p
	}
	return PaymentOther
}
