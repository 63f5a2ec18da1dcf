package meals

import "github.com/samber/lo"

// TotalNutrition sums the nutritional values of the given items.
func TotalNutrition(items []MealItem) Nutrition {
	return lo.Reduce(items, func(acc Nutrition, item MealItem, _ int) Nutrition {
		acc.Calories += item.Calories
		acc.Protein += item.Protein
		acc.Carbs += item.Carbs
		acc.Fat += item.Fat
		return acc
	}, Nutrition{})
}

// ByMealType groups items into their meal slots, preserving order.
func ByMealType(items []MealItem) map[MealType][]MealItem {
	return lo.GroupBy(items, func(item MealItem) MealType {
		return item.MealType
	})
}
