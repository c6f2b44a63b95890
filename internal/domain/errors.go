package domain

import "errors"

var (
	ErrNotFound                    = errors.New("no encontrado")
	ErrValidation                  = errors.New("datos inválidos")
	ErrShippingProviderUnavailable = errors.New("proveedor de envíos no disponible")
	ErrPostalLookupUnavailable     = errors.New("servicio de códigos postales no disponible")
	ErrPaymentProvider             = errors.New("error del proveedor de pagos")
)
