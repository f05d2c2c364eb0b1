// Package crawler implements sitemap discovery and the cache-warming fetch
// phase. A Discoverer walks robots.txt and sitemap indexes down to leaf page
// URLs, and a Fetcher issues one HEAD request per page on a bounded pool.
// Network failures are collected as CrawlError values rather than returned,
// so one broken branch never hides the rest of the site.
package crawler
