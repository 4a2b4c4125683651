// Command board runs the terminal live-orders screen: it polls the API,
// rings the bell when new pending orders arrive, and applies staff commands
// optimistically through the livefeed session.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fornalha-pos/api/internal/enum"
	"github.com/fornalha-pos/api/internal/livefeed"
)

// bellNotifier rings the terminal bell for new orders.
type bellNotifier struct{}

func (bellNotifier) Play() error {
	_, err := fmt.Print("\a")
	return err
}

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", envOr("BOARD_API_URL", "http://localhost:8081"), "API base URL")
	username := flag.String("user", envOr("BOARD_USER", ""), "staff username")
	password := flag.String("pass", envOr("BOARD_PASS", ""), "staff password")
	interval := flag.Duration("interval", 4*time.Second, "poll interval")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("usage: board -user <username> -pass <password> [-api url]")
	}

	token, err := login(*apiURL, *username, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stdin := bufio.NewScanner(os.Stdin)

	session := livefeed.New(livefeed.Options{
		BaseURL:      *apiURL,
		Token:        token,
		Notifier:     bellNotifier{},
		Logger:       zap.NewNop(),
		PollInterval: *interval,
		OnChange:     render,
		OnError: func(err error) {
			fmt.Printf("! atualização falhou: %v\n", err)
		},
		Confirm: func(o livefeed.Order) bool {
			fmt.Printf("Cancelar pedido %s de %s? (s/N) ", o.Number, o.CustomerName)
			if !stdin.Scan() {
				return false
			}
			answer := strings.ToLower(strings.TrimSpace(stdin.Text()))
			return answer == "s" || answer == "sim"
		},
	})

	session.Start(ctx)
	defer session.Stop()

	fmt.Println("Comandos: aceitar N | recusar N | status N ESTADO | entregador N NOME | imprimir N [cozinha|cliente] | msg N GATILHO | sair")

	for stdin.Scan() {
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if line == "sair" || line == "quit" {
			return
		}
		if err := runCommand(ctx, session, line); err != nil {
			fmt.Printf("! %v\n", err)
		}
	}
}

func runCommand(ctx context.Context, session *livefeed.Session, line string) error {
	fields := strings.Fields(line)
	order, err := orderAt(session, fields)
	if err != nil {
		return err
	}

	switch fields[0] {
	case "aceitar", "accept":
		return session.Accept(ctx, order.ID)
	case "recusar", "reject":
		return session.Reject(ctx, order.ID)
	case "status":
		if len(fields) < 3 {
			return fmt.Errorf("uso: status N ESTADO")
		}
		return session.UpdateStatus(ctx, order.ID, strings.ToUpper(fields[2]))
	case "entregador", "courier":
		if len(fields) < 3 {
			return fmt.Errorf("uso: entregador N NOME")
		}
		return session.AssignCourier(ctx, order.ID, strings.Join(fields[2:], " "))
	case "imprimir", "print":
		printType := enum.PrintTypeKitchen
		if len(fields) >= 3 && (fields[2] == "cliente" || fields[2] == "customer") {
			printType = enum.PrintTypeCustomer
		}
		return session.Print(ctx, order.ID, printType)
	case "msg":
		if len(fields) < 3 {
			return fmt.Errorf("uso: msg N GATILHO")
		}
		return session.SendCustomerMessage(ctx, order.ID, strings.ToUpper(fields[2]))
	}
	return fmt.Errorf("comando desconhecido: %s", fields[0])
}

// orderAt resolves the 1-based board position in fields[1].
func orderAt(session *livefeed.Session, fields []string) (livefeed.Order, error) {
	if len(fields) < 2 {
		return livefeed.Order{}, fmt.Errorf("informe o número do pedido no painel")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return livefeed.Order{}, fmt.Errorf("número inválido: %s", fields[1])
	}
	orders := session.Orders()
	if n < 1 || n > len(orders) {
		return livefeed.Order{}, fmt.Errorf("pedido %d fora do painel (1-%d)", n, len(orders))
	}
	return orders[n-1], nil
}

func render(orders []livefeed.Order) {
	fmt.Printf("\n===== PEDIDOS ATIVOS (%d) - %s =====\n", len(orders), time.Now().Format("15:04:05"))
	for i, o := range orders {
		bar := progressBar(livefeed.StatusProgress(o.Status))
		origin := ""
		if o.Origin == enum.OriginMarketplace {
			origin = " [marketplace]"
		}
		fmt.Printf("%2d. %s%s  %-18s %s  %s - R$ %s\n",
			i+1, o.Number, origin, livefeed.StatusLabel(o.Status), bar, o.CustomerName, o.TotalAmount)
		if courier := o.CourierName(); courier != "" {
			fmt.Printf("      entregador: %s\n", courier)
		}
	}
}

func progressBar(pct int) string {
	filled := pct / 10
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + "]"
}

func login(apiURL, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(apiURL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Token, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
