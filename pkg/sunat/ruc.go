package sunat

import (
	"fmt"
	"unicode"
)

// pesos para el dígito verificador del RUC (módulo 11), aplicados a los 10 primeros dígitos.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// prefijos válidos: 10 persona natural, 15/16/17 casos especiales, 20 persona jurídica.
var rucPrefixes = map[string]bool{"10": true, "15": true, "16": true, "17": true, "20": true}

// ValidateRUC valida longitud, prefijo y dígito verificador del RUC.
func ValidateRUC(ruc string) error {
	digits := extractDigits(ruc)
	if len(digits) != len(ruc) {
		return fmt.Errorf("sunat: el RUC solo admite dígitos")
	}
	if len(digits) != 11 {
		return fmt.Errorf("sunat: el RUC debe tener 11 dígitos, se recibieron %d", len(digits))
	}
	if !rucPrefixes[string(digits[:2])] {
		return fmt.Errorf("sunat: prefijo de RUC %q inválido", string(digits[:2]))
	}
	expected, err := ComputeRUCCheckDigit(string(digits[:10]))
	if err != nil {
		return err
	}
	if digits[10] != expected {
		return fmt.Errorf("sunat: dígito verificador del RUC inválido: esperado %c, recibido %c", expected, digits[10])
	}
	return nil
}

// ComputeRUCCheckDigit calcula el dígito verificador para los 10 primeros dígitos del RUC.
func ComputeRUCCheckDigit(base string) (byte, error) {
	digits := extractDigits(base)
	if len(digits) < 10 {
		return 0, fmt.Errorf("sunat: se requieren 10 dígitos para calcular el dígito verificador, se encontraron %d", len(digits))
	}
	var sum int
	for i, d := range digits[:10] {
		sum += int(d-'0') * rucWeights[i]
	}
	dv := 11 - sum%11
	switch dv {
	case 10:
		dv = 0
	case 11:
		dv = 1
	}
	return byte('0' + dv), nil
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
