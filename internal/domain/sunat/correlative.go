// Package sunat contiene reglas de dominio puras para comprobantes electrónicos SUNAT (Perú):
// asignación de correlativos y validación de documentos antes de persistirlos.
package sunat

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CorrelativeWidth ancho del número impreso del comprobante (ej: 00000012).
const CorrelativeWidth = 8

// ParseCorrelative convierte "00000012" en 12. Devuelve false si el valor no es un entero positivo.
func ParseCorrelative(s string) (int, bool) {
	s = strings.TrimLeft(strings.TrimSpace(s), "0")
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FormatCorrelative formatea n con ceros a la izquierda hasta CorrelativeWidth.
func FormatCorrelative(n int) string {
	return fmt.Sprintf("%0*d", CorrelativeWidth, n)
}

// NextCorrelative devuelve el menor entero positivo que no está en uso, ya formateado.
// Los valores no numéricos se ignoran. Rellena huecos: {1,2,4,5} -> 3.
func NextCorrelative(existing []string) string {
	nums := make([]int, 0, len(existing))
	for _, s := range existing {
		if n, ok := ParseCorrelative(s); ok {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)

	next := 1
	for _, n := range nums {
		if n == next {
			next++
		} else if n > next {
			break
		}
	}
	return FormatCorrelative(next)
}
