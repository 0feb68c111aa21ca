package stub

import "github.com/mmeshcher/worldcup-storefront/internal/model"

// seedTeams возвращает стартовый набор сборных.
func seedTeams() []model.Team {
	return []model.Team{
		{ID: 1, Name: "France", Flag: "🇫🇷", FlagImagePath: "/flags/fr.png", GroupID: 1, Continent: "Europe"},
		{ID: 2, Name: "Brazil", Flag: "🇧🇷", FlagImagePath: "/flags/br.png", GroupID: 1, Continent: "South America"},
		{ID: 3, Name: "Spain", Flag: "🇪🇸", FlagImagePath: "/flags/es.png", GroupID: 2, Continent: "Europe"},
		{ID: 4, Name: "Italy", Flag: "🇮🇹", FlagImagePath: "/flags/it.png", GroupID: 2, Continent: "Europe"},
		{ID: 5, Name: "Germany", Flag: "🇩🇪", FlagImagePath: "/flags/de.png", GroupID: 3, Continent: "Europe"},
		{ID: 6, Name: "Japan", Flag: "🇯🇵", FlagImagePath: "/flags/jp.png", GroupID: 3, Continent: "Asia"},
	}
}

// seedGroups возвращает группы турнира.
func seedGroups() []model.Group {
	return []model.Group{
		{ID: 1, Name: "Group A"},
		{ID: 2, Name: "Group B"},
		{ID: 3, Name: "Group C"},
	}
}

// seedMatches возвращает матчи без карты категорий: доступность по
// категориям живёт отдельно и отдаётся эндпоинтом availability.
func seedMatches(teams []model.Team) []model.Match {
	byID := make(map[int64]model.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	stadium := model.Stadium{
		ID:       1,
		Name:     "Grand Stade",
		City:     "Casablanca",
		Country:  "Morocco",
		Capacity: 93000,
	}

	return []model.Match{
		{ID: 42, HomeTeam: byID[1], AwayTeam: byID[2], Stadium: stadium, Date: "2026-06-12T18:00:00Z"},
		{ID: 7, HomeTeam: byID[3], AwayTeam: byID[4], Stadium: stadium, Date: "2026-06-13T15:00:00Z"},
		{ID: 9, HomeTeam: byID[5], AwayTeam: byID[6], Stadium: stadium, Date: "2026-06-14T21:00:00Z"},
	}
}

// seedStock возвращает стартовые остатки и цены по категориям каждого матча.
func seedStock(matches []model.Match) map[int64]map[model.CategoryName]*categoryStock {
	stock := make(map[int64]map[model.CategoryName]*categoryStock, len(matches))
	for _, m := range matches {
		stock[m.ID] = map[model.CategoryName]*categoryStock{
			model.CategoryVIP: {price: 250, seats: 10},
			model.Category1:   {price: 120, seats: 50},
			model.Category2:   {price: 80, seats: 100},
			model.Category3:   {price: 45, seats: 200},
		}
	}
	return stock
}

// categoryStock — изменяемый остаток одной категории.
type categoryStock struct {
	price float64
	seats int
}
