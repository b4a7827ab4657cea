// Package intent classifies raw utterances into live-data lookup categories.
//
// Detection is keyword and pattern based. It has no dependencies and no side
// effects: the same utterance always yields the same Detection.
package intent

import (
	"regexp"
	"strings"
)

// Category is a kind of live-data lookup
type Category string

const (
	CategoryCrypto  Category = "crypto"
	CategoryWeather Category = "weather"
	CategoryNews    Category = "news"
)

// All lists every category in canonical order
var All = []Category{CategoryCrypto, CategoryWeather, CategoryNews}

// Coin identifies a cryptocurrency for the quote provider
type Coin struct {
	ID     string // provider id, e.g. "bitcoin"
	Symbol string // ticker, e.g. "BTC"
	Name   string // display name, e.g. "Bitcoin"
}

// Detection is the result of classifying one utterance
type Detection struct {
	// Categories matched, in canonical order, without duplicates
	Categories []Category

	// Coin is set when CategoryCrypto matched
	Coin *Coin

	// City is set when CategoryWeather matched
	City string

	// Topic is the search query when CategoryNews matched
	Topic string
}

// NeedsLookup reports whether any category matched
func (d Detection) NeedsLookup() bool {
	return len(d.Categories) > 0
}

// Has reports whether the given category matched
func (d Detection) Has(c Category) bool {
	for _, got := range d.Categories {
		if got == c {
			return true
		}
	}
	return false
}

type coinPattern struct {
	coin Coin

	// strong names and tickers match on their own
	strong *regexp.Regexp

	// weak tickers are also ordinary words ("sol", "ada", "ether") and only
	// count when written as a ticker ("SOL", "$sol") or next to price talk
	weak *regexp.Regexp
}

var knownCoins = []coinPattern{
	{Coin{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"}, regexp.MustCompile(`(?i)\b(bitcoin|btc)\b`), nil},
	{Coin{ID: "ethereum", Symbol: "ETH", Name: "Ethereum"}, regexp.MustCompile(`(?i)\b(ethereum|eth)\b`), regexp.MustCompile(`(?i)\b(ether)\b`)},
	{Coin{ID: "solana", Symbol: "SOL", Name: "Solana"}, regexp.MustCompile(`(?i)\b(solana)\b`), regexp.MustCompile(`(?i)\b(sol)\b`)},
	{Coin{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin"}, regexp.MustCompile(`(?i)\b(dogecoin|doge)\b`), nil},
	{Coin{ID: "ripple", Symbol: "XRP", Name: "XRP"}, regexp.MustCompile(`(?i)\b(xrp)\b`), regexp.MustCompile(`(?i)\b(ripple)\b`)},
	{Coin{ID: "cardano", Symbol: "ADA", Name: "Cardano"}, regexp.MustCompile(`(?i)\b(cardano)\b`), regexp.MustCompile(`(?i)\b(ada)\b`)},
	{Coin{ID: "litecoin", Symbol: "LTC", Name: "Litecoin"}, regexp.MustCompile(`(?i)\b(litecoin|ltc)\b`), nil},
	{Coin{ID: "binancecoin", Symbol: "BNB", Name: "BNB"}, regexp.MustCompile(`(?i)\b(bnb|binance coin)\b`), nil},
}

var (
	cryptoPattern  = regexp.MustCompile(`(?i)\b(crypto|cryptos|cryptocurrency|cryptocurrencies|coin prices?)\b`)
	marketPattern  = regexp.MustCompile(`(?i)\bmarkets?\b`)
	pricePattern   = regexp.MustCompile(`(?i)\b(price|prices|priced|worth|trading|chart|pump|pumping|dump|dumping|moon|ath|hodl|buy|sell|coins?|tokens?|usd|crypto)\b`)
	weatherPattern = regexp.MustCompile(`(?i)\b(weather|forecast|temperature|raining|rain|snowing|snow|sunny|humid|humidity)\b`)
	newsPattern    = regexp.MustCompile(`(?i)\b(news|headlines?|happening|going on|latest on|breaking)\b`)

	// "weather in london today?", "is it raining in Paris"; the capture stops
	// at time phrases ("this weekend", "next week", "later", "all day")
	cityAfterWeather = regexp.MustCompile(`(?i)\b(?:weather|forecast|temperature|raining|rain|snowing|snow|sunny|humid|humidity)\b.*?\b(?:in|for|at)\s+([a-z][a-z .'-]{1,40}?)\s*(?:\b(?:today|tomorrow|tonight|now|later|like|this|next|all|over|during|on|at|these|every|around)\b|[?!.,]|$)`)
	// "in Tokyo, is the weather nice"
	capitalizedCity = regexp.MustCompile(`\b(?:in|for|at|In|For|At)\s+([A-Z][\p{L}]+(?:[ -][A-Z][\p{L}]+){0,2})`)

	newsTopic = regexp.MustCompile(`(?i)\b(?:news|headlines?|latest)\s+(?:about|on|for|in)\s+(.+?)[?!.]*$`)
)

// words that follow "in/for/at" but are never a city
var notCities = map[string]bool{
	"the": true, "my": true, "today": true, "tomorrow": true, "tonight": true,
	"general": true, "here": true, "there": true, "now": true, "a": true,
	"all": true, "least": true, "night": true, "home": true, "work": true,
}

// market words that make "market" something other than crypto
var otherMarkets = map[string]bool{
	"stock": true, "stocks": true, "housing": true, "job": true, "jobs": true,
	"labor": true, "labour": true, "bond": true, "bonds": true, "estate": true,
	"property": true, "equity": true, "equities": true, "flea": true,
	"farmers": true, "farmers'": true, "super": true, "black": true, "car": true,
	"art": true, "fish": true, "night": true, "christmas": true, "rental": true,
}

// Detector classifies utterances
type Detector struct {
	defaultCoin Coin
	defaultCity string
}

// NewDetector creates a detector. defaultCoinID selects the coin used for
// generic market questions ("how are markets?"); defaultCity is used when a
// weather question names no city.
func NewDetector(defaultCoinID, defaultCity string) *Detector {
	coin := knownCoins[0].coin
	for _, kc := range knownCoins {
		if kc.coin.ID == defaultCoinID {
			coin = kc.coin
			break
		}
	}

	return &Detector{
		defaultCoin: coin,
		defaultCity: defaultCity,
	}
}

// Detect classifies an utterance. An empty Detection means no lookup is needed.
func (d *Detector) Detect(utterance string) Detection {
	var det Detection

	text := strings.TrimSpace(utterance)
	if text == "" {
		return det
	}

	if coin := d.detectCoin(text); coin != nil {
		det.Categories = append(det.Categories, CategoryCrypto)
		det.Coin = coin
	}

	if weatherPattern.MatchString(text) {
		det.Categories = append(det.Categories, CategoryWeather)
		det.City = d.detectCity(text)
	}

	if newsPattern.MatchString(text) {
		det.Categories = append(det.Categories, CategoryNews)
		det.Topic = detectTopic(text)
	}

	return det
}

// detectCoin returns the earliest named coin, the default coin for generic
// crypto or market words, or nil
func (d *Detector) detectCoin(text string) *Coin {
	var found *Coin
	first := -1
	priceTalk := pricePattern.MatchString(text)

	for i := range knownCoins {
		kc := knownCoins[i]
		loc := kc.strong.FindStringIndex(text)
		if weak := weakMatch(kc, text, priceTalk); weak != nil && (loc == nil || weak[0] < loc[0]) {
			loc = weak
		}
		if loc == nil {
			continue
		}
		if first == -1 || loc[0] < first {
			first = loc[0]
			coin := kc.coin
			found = &coin
		}
	}

	if found != nil {
		return found
	}

	if cryptoPattern.MatchString(text) || cryptoMarket(text) {
		coin := d.defaultCoin
		return &coin
	}

	return nil
}

// weakMatch returns the first usable weak ticker match, or nil
func weakMatch(kc coinPattern, text string, priceTalk bool) []int {
	if kc.weak == nil {
		return nil
	}
	for _, loc := range kc.weak.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		dollar := loc[0] > 0 && text[loc[0]-1] == '$'
		if priceTalk || dollar || word == strings.ToUpper(word) {
			return loc
		}
	}
	return nil
}

// cryptoMarket reports whether some "market" in text is not qualified as
// another kind of market ("stock market", "housing market")
func cryptoMarket(text string) bool {
	for _, loc := range marketPattern.FindAllStringIndex(text, -1) {
		before := strings.Fields(strings.ToLower(text[:loc[0]]))
		if len(before) == 0 || !otherMarkets[before[len(before)-1]] {
			return true
		}
	}
	return false
}

func (d *Detector) detectCity(text string) string {
	if m := cityAfterWeather.FindStringSubmatch(text); m != nil {
		if city := cleanCity(m[1]); city != "" {
			return city
		}
	}

	if m := capitalizedCity.FindStringSubmatch(text); m != nil {
		if city := cleanCity(m[1]); city != "" {
			return city
		}
	}

	return d.defaultCity
}

func cleanCity(raw string) string {
	city := strings.Trim(strings.TrimSpace(raw), " .'-")
	if city == "" || notCities[strings.ToLower(strings.Fields(city)[0])] {
		return ""
	}
	return city
}

func detectTopic(text string) string {
	if m := newsTopic.FindStringSubmatch(text); m != nil {
		if topic := strings.TrimSpace(m[1]); topic != "" {
			return topic + " news"
		}
	}
	return strings.TrimRight(text, "?!. ")
}
