package parse

// isoCurrencyCodes is the enumerated set the heuristic extractor matches
// against. Order is irrelevant; the alternation is built once at init.
var isoCurrencyCodes = []string{
	"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD", "CNY", "HKD",
	"SGD", "SEK", "NOK", "DKK", "PLN", "CZK", "HUF", "RON", "BGN", "ISK",
	"RUB", "TRY", "UAH", "ILS", "AED", "SAR", "QAR", "KWD", "BHD", "OMR",
	"JOD", "LBP", "EGP", "MAD", "TND", "DZD", "LYD", "NGN", "GHS", "KES",
	"TZS", "UGX", "ZAR", "ZMW", "BWP", "MUR", "ETB", "XOF", "XAF", "MXN",
	"BRL", "ARS", "CLP", "COP", "PEN", "UYU", "PYG", "BOB", "VES", "CRC",
	"GTQ", "HNL", "NIO", "PAB", "DOP", "JMD", "TTD", "BBD", "BSD", "KYD",
	"INR", "PKR", "BDT", "LKR", "NPR", "MMK", "THB", "VND", "KHR", "LAK",
	"IDR", "MYR", "PHP", "TWD", "KRW", "MNT", "KZT", "UZS", "AZN", "GEL",
	"AMD", "BYN", "MDL", "RSD", "MKD", "ALL", "BAM", "FJD", "PGK", "BND",
}
