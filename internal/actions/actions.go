// Package actions builds engine tasks for the character actions of the
// Artifacts API. Every constructor targets POST /my/{name}/action/{action}
// and accepts an optional continuation.
package actions

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/perbu/artifacts/internal/engine"
)

// Path returns the endpoint of action for the named character. The name is
// escaped as a single path segment.
func Path(name, action string) string {
	return fmt.Sprintf("/my/%s/action/%s", url.PathEscape(name), action)
}

// Name reduces an action path to the action itself, e.g.
// "/my/Ann/action/bank/deposit" → "bank/deposit". Paths that are not
// character actions are returned unchanged.
func Name(actionID string) string {
	if _, after, ok := strings.Cut(actionID, "/action/"); ok {
		return after
	}
	return actionID
}

func action(name, act string, params map[string]any, then engine.Continuation) engine.Task {
	return engine.NewTask(Path(name, act), "POST", params, then)
}

func codeQuantity(code string, quantity int) map[string]any {
	return map[string]any{"code": code, "quantity": quantity}
}

func Move(name string, x, y int, then engine.Continuation) engine.Task {
	return action(name, "move", map[string]any{"x": x, "y": y}, then)
}

func Rest(name string, then engine.Continuation) engine.Task {
	return action(name, "rest", nil, then)
}

func Fight(name string, then engine.Continuation) engine.Task {
	return action(name, "fight", nil, then)
}

func Gather(name string, then engine.Continuation) engine.Task {
	return action(name, "gathering", nil, then)
}

// Equip puts code into slot, e.g. "weapon". Quantity only matters for
// utility slots.
func Equip(name, slot, code string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "equip", map[string]any{"slot": slot, "code": code, "quantity": quantity}, then)
}

func Unequip(name, slot string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "unequip", map[string]any{"slot": slot, "quantity": quantity}, then)
}

func Use(name, code string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "use", codeQuantity(code, quantity), then)
}

func Craft(name, code string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "crafting", codeQuantity(code, quantity), then)
}

func Recycle(name, code string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "recycling", codeQuantity(code, quantity), then)
}

func DeleteItem(name, code string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "inventory/delete", codeQuantity(code, quantity), then)
}

// Bank

func DepositGold(name string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "bank/deposit/gold", map[string]any{"quantity": quantity}, then)
}

func WithdrawGold(name string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "bank/withdraw/gold", map[string]any{"quantity": quantity}, then)
}

func DepositItem(name, code string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "bank/deposit", codeQuantity(code, quantity), then)
}

func WithdrawItem(name, code string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "bank/withdraw", codeQuantity(code, quantity), then)
}

func BuyBankExpansion(name string, then engine.Continuation) engine.Task {
	return action(name, "bank/buy_expansion", nil, then)
}

// Grand exchange

func BuyOrder(name, orderID string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "grandexchange/buy", map[string]any{"id": orderID, "quantity": quantity}, then)
}

func CreateSellOrder(name, code string, quantity, price int, then engine.Continuation) engine.Task {
	return action(name, "grandexchange/create_sell_order",
		map[string]any{"code": code, "quantity": quantity, "price": price}, then)
}

func CancelSellOrder(name, orderID string, then engine.Continuation) engine.Task {
	return action(name, "grandexchange/cancel_sell_order", map[string]any{"id": orderID}, then)
}

// In-game tasks

func CompleteTask(name string, then engine.Continuation) engine.Task {
	return action(name, "task/complete", nil, then)
}

func ExchangeTask(name string, then engine.Continuation) engine.Task {
	return action(name, "task/exchange", nil, then)
}

func NewTask(name string, then engine.Continuation) engine.Task {
	return action(name, "task/new", nil, then)
}

func TradeTask(name, code string, quantity int, then engine.Continuation) engine.Task {
	return action(name, "task/trade", codeQuantity(code, quantity), then)
}

func CancelTask(name string, then engine.Continuation) engine.Task {
	return action(name, "task/cancel", nil, then)
}

func ChristmasExchange(name string, then engine.Continuation) engine.Task {
	return action(name, "christmas/exchange", nil, then)
}
