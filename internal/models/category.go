package models

type Category struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

func DefaultCategories() []Category {
	return []Category{
		{Code: "A", Name: "Pemeriksaan Umum"},
		{Code: "B", Name: "Kesehatan Ibu dan Anak"},
		{Code: "C", Name: "Kesehatan Gigi dan Mulut"},
		{Code: "D", Name: "Keluarga Berencana (KB)"},
	}
}
