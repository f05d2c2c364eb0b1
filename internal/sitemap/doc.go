// Package sitemap decodes sitemap protocol documents into a flat list of
// locations. Both <sitemapindex> and <urlset> roots are understood, and the
// decoder always yields a slice of locations, even when a document lists a
// single child.
package sitemap
