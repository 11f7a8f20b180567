// Package robokassa реализует схему подписи Robokassa: формирование
// SignatureValue для исходящей платёжной ссылки и проверочной подписи
// для входящего колбэка ResultURL, а также кодирование фискального чека.
//
// Провайдер требует MD5 от строки с полями через двоеточие,
// результат — шестнадцатеричная строка в верхнем регистре.
package robokassa

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SignatureKind тип подписи.
type SignatureKind string

const (
	// SignaturePay подпись для исходящей платёжной ссылки (Пароль #1).
	SignaturePay SignatureKind = "pay"
	// SignatureCheck подпись для проверки входящего ResultURL (Пароль #2).
	SignatureCheck SignatureKind = "check"
)

var (
	// ErrEmptySecret пароль для подписи не задан. Это ошибка конфигурации,
	// молча подставлять значение по умолчанию нельзя.
	ErrEmptySecret = errors.New("signature secret is empty")
	// ErrMerchantLoginRequired для подписи типа pay обязателен merchantLogin.
	ErrMerchantLoginRequired = errors.New("merchant login is required for pay signature")
)

// FormattingPolicy определяет формат суммы в подписи и в ссылке.
// Кодек и вызывающая сторона обязаны использовать одну и ту же политику,
// иначе подписи никогда не совпадут.
type FormattingPolicy int

const (
	// FormatPlain сумма как есть, без добивки нулями. Тестовый режим.
	FormatPlain FormattingPolicy = iota
	// FormatFixed сумма с шестью знаками после запятой. Боевой режим.
	FormatFixed
)

// FormatAmount приводит сумму к строковому виду согласно политике.
func (p FormattingPolicy) FormatAmount(amount float64) string {
	if p == FormatFixed {
		return strconv.FormatFloat(amount, 'f', 6, 64)
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// SignaturePayload входные параметры для вычисления SignatureValue.
type SignaturePayload struct {
	MerchantLogin string // Идентификатор магазина, нужен только для pay
	OutSum        string // Сумма в уже отформатированном виде
	InvID         string // Номер счёта
	Receipt       string // URL-кодированный чек, нужен только для pay
	Secret        string // Пароль #1 или #2 из настроек магазина
}

// Sign вычисляет подпись указанного типа.
//
//	pay:   merchantLogin:outSum:invId:receipt:secret
//	check: outSum:invId:secret
func Sign(kind SignatureKind, payload SignaturePayload) (string, error) {
	if strings.TrimSpace(payload.Secret) == "" {
		return "", ErrEmptySecret
	}

	var signatureString string
	switch kind {
	case SignaturePay:
		if payload.MerchantLogin == "" {
			return "", ErrMerchantLoginRequired
		}
		signatureString = fmt.Sprintf("%s:%s:%s:%s:%s",
			payload.MerchantLogin, payload.OutSum, payload.InvID, payload.Receipt, payload.Secret)
	case SignatureCheck:
		signatureString = fmt.Sprintf("%s:%s:%s",
			payload.OutSum, payload.InvID, payload.Secret)
	default:
		return "", fmt.Errorf("unknown signature kind: %s", kind)
	}

	sum := md5.Sum([]byte(signatureString))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

type receiptItem struct {
	Name     string `json:"name"`
	Sum      string `json:"sum"`
	Quantity int    `json:"quantity"`
	Tax      string `json:"tax"`
}

type receipt struct {
	Sno   string        `json:"sno"`
	Items []receiptItem `json:"items"`
}

// EncodeReceipt формирует URL-кодированный фискальный чек с одной позицией.
// Закодированная строка участвует и в подписи, и в параметрах ссылки.
func EncodeReceipt(name, sum string) (string, error) {
	r := receipt{
		Sno: "usn_income",
		Items: []receiptItem{
			{Name: name, Sum: sum, Quantity: 1, Tax: "none"},
		},
	}
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("robokassa.EncodeReceipt: %w", err)
	}
	return url.QueryEscape(string(body)), nil
}
