/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
)

const scanPromptTemplate = `На этом фото — игровой стол "7 Wonders Duel", Эпоха {{AGE_LABEL}}.

Ниже список всех карт этой эпохи в формате: название | цвет | стоимость | эффект

{{CARD_DATA}}

Найди все карты, которые лежат ЛИЦОМ ВВЕРХ (видны рисунок, название, иконки).
Карты рубашкой вверх не включай. Сверяй цвет, стоимость и эффект, если название читается плохо.

Ответь ТОЛЬКО JSON-массивом названий карт точно так, как они записаны в списке, без пояснений:
["Название 1", "Название 2"]`

const xrayPrompt = `На этом фото — игровой стол "7 Wonders Duel". На столе карты в пирамидальной раскладке.

Найди ВСЕ карты, которые лежат РУБАШКОЙ ВВЕРХ (закрытые, face-down). Это карты с тёмной однотонной задней стороной без рисунка, обычно коричневого/бежевого цвета с узором.

НЕ ВКЛЮЧАЙ карты лежащие лицом вверх (с видимым рисунком, названием, иконками).

Для каждой найденной закрытой карты верни её ЦЕНТР в процентах от ширины и высоты изображения.

Ответь ТОЛЬКО в формате JSON-массива объектов, без пояснений:
[{"x": 50, "y": 30}, {"x": 25, "y": 60}]

Где x — процент от левого края (0-100), y — процент от верхнего края (0-100).`

// cardTable renders one "title | color | cost | effect" line per card.
func cardTable(deck []Card) string {
	lines := make([]string, 0, len(deck))
	for _, c := range deck {
		lines = append(lines, strings.Join([]string{
			c.Title,
			c.Color.russian(),
			c.CostText(),
			c.Effect,
		}, " | "))
	}
	return strings.Join(lines, "\n")
}

func buildScanPrompt(age Age, deck []Card) string {
	return strings.NewReplacer(
		"{{AGE_LABEL}}", age.Label(),
		"{{CARD_DATA}}", cardTable(deck),
	).Replace(scanPromptTemplate)
}
