package trip

import "motoya/internal/domain"

type viewKey struct {
	phase domain.Phase
	role  domain.Role
}

var views = map[viewKey]domain.View{
	{domain.PhaseTracking, domain.RoleRider}:           {Badge: "RECOGIÉNDOTE", Headline: "Tu conductor está en camino", Detail: "Sigue su ubicación en el mapa"},
	{domain.PhaseTracking, domain.RoleDriver}:          {Badge: "EN CAMINO", Headline: "Dirígete al punto de recogida", Detail: "El pasajero te espera"},
	{domain.PhaseArrivedNotice, domain.RoleRider}:      {Badge: "HA LLEGADO", Headline: "¡Tu conductor ha llegado!", Detail: "Confirma cuando lo encuentres"},
	{domain.PhaseArrivedNotice, domain.RoleDriver}:     {Badge: "EN EL PUNTO", Headline: "Llegaste al punto de recogida", Detail: "Confirma cuando el pasajero aborde"},
	{domain.PhasePaymentSelection, domain.RoleRider}:   {Badge: "PAGO", Headline: "Elige cómo pagar", Detail: "Efectivo o Pago Móvil"},
	{domain.PhasePaymentSelection, domain.RoleDriver}:  {Badge: "PAGO", Headline: "Esperando el método de pago", Detail: "Confirma el pago del pasajero"},
	{domain.PhaseConfirmingPayment, domain.RoleRider}:  {Badge: "VERIFICANDO", Headline: "Procesando pago", Detail: "Validando transacción con tu banco"},
	{domain.PhaseConfirmingPayment, domain.RoleDriver}: {Badge: "VERIFICANDO", Headline: "Verificando Pago Móvil", Detail: "Espera la confirmación del banco"},
	{domain.PhaseInTrip, domain.RoleRider}:             {Badge: "EN RUTA", Headline: "Viaje en curso", Detail: "Rumbo a tu destino"},
	{domain.PhaseInTrip, domain.RoleDriver}:            {Badge: "EN RUTA", Headline: "Lleva al pasajero a su destino", Detail: "Sigue la ruta marcada"},
	{domain.PhaseCompleted, domain.RoleRider}:          {Badge: "FINALIZADO", Headline: "¡Llegaste a tu destino!", Detail: "¿Qué tal estuvo tu viaje?"},
	{domain.PhaseCompleted, domain.RoleDriver}:         {Badge: "FINALIZADO", Headline: "Viaje completado", Detail: "Califica al pasajero"},
}

// ViewFor returns the copy for a phase as seen by role.
func ViewFor(phase domain.Phase, role domain.Role) domain.View {
	return views[viewKey{phase: phase, role: role}]
}

// RatingLabel returns the caption shown under the selected stars.
func RatingLabel(rating int) string {
	switch {
	case rating == 5:
		return "¡Excelente!"
	case rating >= 3 && rating <= 4:
		return "¡Muy bueno!"
	case rating >= 1 && rating <= 2:
		return "Podemos mejorar"
	default:
		return ""
	}
}
