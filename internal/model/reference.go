package model

import "github.com/shopspring/decimal"

// Справочники ведутся снаружи, ядро только читает их

type Tutor struct {
	ID    int64           `json:"id" yaml:"id"`
	Name  string          `json:"name" yaml:"name"`
	Email string          `json:"email" yaml:"email"`
	Color string          `json:"color" yaml:"color"`
	Rate  decimal.Decimal `json:"rate" yaml:"rate"`
}

type Student struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

type Subject struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Location struct {
	ID      int64  `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
}
