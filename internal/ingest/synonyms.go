package ingest

import "registercore/pkg/domain"

// headerSynonyms maps source spreadsheet headers to canonical column
// names. Matching happens on the folded skeleton (case, whitespace,
// quotes and punctuation insensitive), so one entry covers every
// formatting variant of a header. Unmapped headers are dropped.
var headerSynonyms = map[string]string{
	// contract register, original Russian export headers
	"Номер договора":              domain.ColContractNumber,
	"Дата заключения договора":    domain.ColAgreementDate,
	"Покупатель, ИНН":             domain.ColBuyer,
	"Кадастровый номер ЗУ, адрес ЗУ": domain.ColParcelCadastral,
	"Площадь ЗУ, кв. м":           domain.ColParcelArea,
	"Разрешенное использование ЗУ": domain.ColPermittedUse,
	"Основание предоставления":    domain.ColLegalBasis,
	"Цена ЗУ по договору, руб.":   domain.ColContractPrice,
	"Срок оплаты по договору":     domain.ColPaymentDueDate,
	"Фактическая дата оплаты":     domain.ColActualPaymentDate,
	"№ выписки учета поступлений, № ПП": domain.ColReceiptReference,
	"Оплачено":                    domain.ColAmountPaid,
	"Оплачено, руб.":              domain.ColAmountPaid,
	"примечание":                  domain.ColNote,
	"начисленные ПЕНИ":            domain.ColAccruedPenalty,
	"оплачено пеней":              domain.ColPaidPenalty,
	"Дата выписки учета поступлений, № ПП": domain.ColReceiptDate,
	"Возврат имеющейся переплаты": domain.ColOverpaymentRefund,

	// calculated columns appear in exports; recognized so they can be
	// deliberately dropped instead of passing the unmatched-header path
	`Контроль по дате ("-" - просрочка)`:                          domain.ColControlByDate,
	`Контроль по оплате цены ("-" - переплата; "+" - недоплата)`:  domain.ColControlByPrice,
	`неоплаченные ПЕНИ ("+" - недоплата; "-" - переплата)`:        domain.ColUnpaidPenalty,

	// english display names
	"contract number":                domain.ColContractNumber,
	"agreement date":                 domain.ColAgreementDate,
	"buyer id":                       domain.ColBuyer,
	"parcel cadastral number address": domain.ColParcelCadastral,
	"parcel area":                    domain.ColParcelArea,
	"permitted use":                  domain.ColPermittedUse,
	"legal basis":                    domain.ColLegalBasis,
	"contract price":                 domain.ColContractPrice,
	"payment due date":               domain.ColPaymentDueDate,
	"actual payment date":            domain.ColActualPaymentDate,
	"receipt reference":              domain.ColReceiptReference,
	"amount paid":                    domain.ColAmountPaid,
	"note":                           domain.ColNote,
	"accrued penalty":                domain.ColAccruedPenalty,
	"paid penalty":                   domain.ColPaidPenalty,
	"receipt date":                   domain.ColReceiptDate,
	"overpayment refund":             domain.ColOverpaymentRefund,

	// agreement register
	"Номер":      "number",
	"Территория": "territory",
	"Стороны":    "parties",
	"Срок":       "term",

	// permit register
	"ЗУ":        "parcel",
	"Заявитель": "applicant",
	"Период":    "period",
}
