// Package browser abstracts the page automation used to scrape sportshub.
//
// A Browser opens Tabs; a Tab navigates, waits for selectors and returns
// Elements. Two engines are provided: a headless Chrome driven by chromedp,
// and a plain HTTP fetcher backed by goquery for server-rendered pages.
package browser
