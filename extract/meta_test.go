package extract

import "testing"

func TestMetadata(t *testing.T) {
	m := Metadata(articlePage)
	if m.Author != "Jane Tester" {
		t.Fatalf("author = %q", m.Author)
	}
	if m.PublishDate != "2026-03-01T09:00:00Z" {
		t.Fatalf("publish date = %q", m.PublishDate)
	}
	if m.SiteName != "Travel Pages" {
		t.Fatalf("site name = %q", m.SiteName)
	}
	if m.Description != "A guide to the Louvre." {
		t.Fatalf("description = %q", m.Description)
	}
}

func TestMetadata_TimeTagFallback(t *testing.T) {
	page := `<html><body><article><time datetime="2026-05-01">May 1</time><p>x</p></article></body></html>`
	m := Metadata(page)
	if m.PublishDate != "2026-05-01" {
		t.Fatalf("publish date = %q, want time[datetime] fallback", m.PublishDate)
	}
}

func TestMetadata_Missing(t *testing.T) {
	m := Metadata("<html><body><p>nothing</p></body></html>")
	if m.Author != "" || m.PublishDate != "" || m.SiteName != "" {
		t.Fatalf("expected empty meta, got %+v", m)
	}
}

func TestImages(t *testing.T) {
	page := `<html><head><meta property="og:image" content="/img/cover.jpg"></head>
<body><img src="/img/one.png" alt="first"><img src="https://cdn.example.com/two.png">
<img src="/img/one.png" alt="dup"><img src="data:image/png;base64,xx"></body></html>`

	imgs := Images(page, "https://site.example.com/article")
	if len(imgs) != 3 {
		t.Fatalf("got %d images, want 3 (og + two unique, data: skipped): %+v", len(imgs), imgs)
	}
	if imgs[0].URL != "https://site.example.com/img/cover.jpg" {
		t.Fatalf("og:image should sort first and resolve: %q", imgs[0].URL)
	}
	if imgs[1].Alt != "first" {
		t.Fatalf("alt = %q", imgs[1].Alt)
	}
}

func TestSelectorTexts(t *testing.T) {
	page := `<html><body>
<span class="price">$129.00</span>
<div id="summary">Two nights, <b>breakfast</b> included</div>
</body></html>`

	got, err := SelectorTexts(page, []string{".price", "#summary", ".missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got[".price"]) != 1 || got[".price"][0] != "$129.00" {
		t.Fatalf(".price = %+v", got[".price"])
	}
	if len(got["#summary"]) != 1 || got["#summary"][0] != "Two nights, breakfast included" {
		t.Fatalf("#summary = %+v", got["#summary"])
	}
	if texts, ok := got[".missing"]; !ok || len(texts) != 0 {
		t.Fatalf(".missing should be present and empty, got %+v ok=%v", texts, ok)
	}
}
