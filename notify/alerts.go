package notify

import "fmt"

// alertNames maps the venue's market-watch alert category codes to
// human-readable descriptions. The live alert subscription itself is not
// part of the trading core; this table is static configuration for
// rendering any alert that reaches the notification layer.
var alertNames = map[int]string{
	10: "first foreign-desk buy",
	11: "first foreign-desk sell",
	12: "foreign net buying",
	13: "foreign net selling",
	21: "previous-day volume exceeded",
	22: "new 5-day volume high",
	23: "5-day supply zone breakout",
	24: "60-day supply zone breakout",
	28: "first limit-up in 5 days",
	29: "new 5-day high",
	30: "new 5-day low",
	31: "approaching limit-up",
	32: "approaching limit-down",
	41: "price crossed above 5-day MA",
	42: "price crossed below 5-day MA",
	43: "volume crossed above 5-day MA",
	44: "dead cross (5MA < 20MA)",
	45: "golden cross (5MA > 20MA)",
	46: "MACD buy: crossed above signal(9)",
	47: "MACD sell: crossed below signal(9)",
	48: "CCI buy: crossed above -100",
	49: "CCI sell: crossed below +100",
	50: "stochastic(10,5,5) buy: above base line",
	51: "stochastic(10,5,5) sell: below base line",
	52: "stochastic(10,5,5) buy: %K/%D cross",
	53: "stochastic(10,5,5) sell: %K/%D cross",
	54: "sonar buy: crossed above signal(9)",
	55: "sonar sell: crossed below signal(9)",
	56: "momentum buy: crossed above 100",
	57: "momentum sell: crossed below 100",
	58: "RSI(14) buy: crossed above signal(9)",
	59: "RSI(14) sell: crossed below signal(9)",
	60: "volume oscillator buy: above signal(9)",
	61: "volume oscillator sell: below signal(9)",
	62: "price ROC buy: crossed above signal(9)",
	63: "price ROC sell: crossed below signal(9)",
	64: "ichimoku buy: conversion above base line",
	65: "ichimoku sell: conversion below base line",
	66: "ichimoku buy: price above leading span",
	67: "ichimoku sell: price below leading span",
	68: "three-line break: bullish reversal",
	69: "three-line break: bearish reversal",
	70: "candle pattern: bullish reversal",
	71: "candle pattern: bearish reversal",
	81: "5-day MA breakout after sharp drop",
	82: "moving averages converged within 5%",
	83: "pullback re-entry holding 20-day MA",
}

// AlertName renders a market-watch alert category code.
func AlertName(code int) string {
	if name, ok := alertNames[code]; ok {
		return name
	}
	return fmt.Sprintf("alert(%d)", code)
}
