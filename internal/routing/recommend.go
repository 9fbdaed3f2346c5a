package routing

import "saferoute-go/pkg/models"

// SelectRecommended выбирает рекомендуемый вариант по предпочтению безопасности 0-100.
// >70 - safest, <30 - fastest, иначе balanced; без предпочтения - balanced.
// Если нужного варианта нет, возвращается первый.
func SelectRecommended(routes []models.RouteOption, safetyPreference *int) (models.RouteOption, error) {
	if len(routes) == 0 {
		return models.RouteOption{}, models.ErrNoRoutes
	}

	target := models.VariantBalanced
	if safetyPreference != nil {
		switch {
		case *safetyPreference > 70:
			target = models.VariantSafest
		case *safetyPreference < 30:
			target = models.VariantFastest
		}
	}

	for _, route := range routes {
		if route.Type == target {
			return route, nil
		}
	}
	return routes[0], nil
}
