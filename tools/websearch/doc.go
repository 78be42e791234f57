// Package websearch provides the web_search tool.
//
// Two engines are available: Brave Search, which returns web and news
// results, and Tavily, which also returns an aggregated answer.
package websearch
