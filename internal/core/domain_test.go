package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
	}{
		{"Market/Gıda", CategoryGroceries},
		{"Market/Gida", CategoryGroceries},
		{"market/gıda", CategoryGroceries},
		{"Ulasim", CategoryTransport},
		{"Banka Islemi", CategoryBank},
		{"BANKA İŞLEMİ", CategoryBank},
		{"Restoran/Kafe", CategoryRestaurant},
		{"Restaurant/Cafe", CategoryRestaurant},
		{"Health", CategoryHealth},
		{"Diger", CategoryOther},
		{"", CategoryOther},
		{"Crypto", CategoryOther},
	}
	for _, tc := range cases {
		if got := ParseCategory(tc.in); got != tc.want {
			t.Fatalf("ParseCategory(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategoryColor(t *testing.T) {
	if got := CategoryGroceries.Color(); got != "C8E6C9" {
		t.Fatalf("groceries color=%s", got)
	}
	if got := Category("Crypto").Color(); got != FallbackColor {
		t.Fatalf("unmapped color=%s, want fallback", got)
	}
	for _, c := range Categories {
		if !c.IsValid() {
			t.Fatalf("category %q should be valid", c)
		}
	}
}

func TestParseDocumentTypeAndPaymentMethod(t *testing.T) {
	docs := map[string]DocumentType{
		"receipt": DocumentReceipt, "fiş": DocumentReceipt, "dekont": DocumentBankSlip,
		"bank-slip": DocumentBankSlip, "makbuz": DocumentVoucher, "contract": DocumentOther, "": "",
	}
	for in, want := range docs {
		if got := ParseDocumentType(in); got != want {
			t.Fatalf("ParseDocumentType(%q)=%q, want %q", in, got, want)
		}
	}
	pays := map[string]PaymentMethod{
		"cash": PaymentCash, "kredi kartı": PaymentCreditCard, "banka karti": PaymentDebitCard,
		"havale": PaymentWireTransfer, "EFT": PaymentEFT, "crypto": PaymentOther, "": "",
	}
	for in, want := range pays {
		if got := ParsePaymentMethod(in); got != want {
			t.Fatalf("ParsePaymentMethod(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	got := ExpenseRecord{Category: "unknown", Time: "09:30:12"}.WithDefaults(now)
	if got.Date != "2024-03-05" {
		t.Fatalf("date=%q", got.Date)
	}
	if got.Time != "09:30" {
		t.Fatalf("time=%q", got.Time)
	}
	if got.Category != CategoryOther {
		t.Fatalf("category=%q", got.Category)
	}
	if got.Currency != DefaultCurrency {
		t.Fatalf("currency=%q", got.Currency)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	kept := ExpenseRecord{Date: "2024-01-31", Time: "", Currency: "eur"}.WithDefaults(now)
	if kept.Date != "2024-01-31" || kept.Time != "14:07" || kept.Currency != "EUR" {
		t.Fatalf("unexpected defaults: %+v", kept)
	}
}

func TestValidate(t *testing.T) {
	good := ExpenseRecord{Date: "2024-03-01", Time: "10:00", Category: CategoryBill}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []ExpenseRecord{
		{Date: "01/03/2024", Time: "10:00", Category: CategoryBill},
		{Date: "2024-03-01", Time: "10am", Category: CategoryBill},
		{Date: "2024-03-01", Time: "10:00", Category: "Crypto"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCellsRoundTrip(t *testing.T) {
	in := ExpenseRecord{
		Date:          "2024-03-01",
		Time:          "12:30",
		Category:      CategoryGroceries,
		Description:   "weekly shopping",
		Amount:        decimal.NewNullDecimal(decimal.RequireFromString("125.50")),
		Currency:      "TRY",
		DocumentType:  DocumentReceipt,
		Vendor:        "Migros",
		TaxID:         "1234567890",
		PaymentMethod: PaymentCreditCard,
		Source:        "whatsapp:+905551112233",
	}
	cells := in.Strings()
	if len(cells) != ColumnCount || len(in.Values()) != ColumnCount {
		t.Fatalf("expected %d cells", ColumnCount)
	}
	if cells[ColVATAmount] != "" {
		t.Fatalf("absent VAT should be empty, got %q", cells[ColVATAmount])
	}
	if in.Values()[ColVATAmount] != nil {
		t.Fatalf("absent VAT value should be nil")
	}
	out := RecordFromCells(cells)
	if !out.Amount.Valid || !out.Amount.Decimal.Equal(in.Amount.Decimal) {
		t.Fatalf("amount mismatch: %v", out.Amount)
	}
	out.Amount = in.Amount
	if out != in {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestIsHeader(t *testing.T) {
	if !IsHeader(Columns[:]) {
		t.Fatal("header not recognised")
	}
	if IsHeader([]string{"Date", "Time"}) {
		t.Fatal("short row is not a header")
	}
}
