// Package browsertest serves a local contact form that mimics the markup and
// behaviour of a Contact Form 7 page, for browser-backed integration tests.
package browsertest

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// ContactFormHTML validates on submit without a network round trip: a
// missing required field or a malformed e-mail marks the form invalid and
// adds a tip per field; otherwise the form is marked sent.
const ContactFormHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Contact</title>
<style>
  .wpcf7-response-output { display: none; }
  form.sent .wpcf7-response-output, form.invalid .wpcf7-response-output { display: block; }
  .spacer { height: 1600px; }
</style>
</head>
<body>
<div class="spacer"></div>
<form class="wpcf7-form init" novalidate>
  <input name="your-name" type="text">
  <input name="your-email" type="email">
  <input name="your-phone" type="tel">
  <input name="your-subject" type="text">
  <textarea name="your-message"></textarea>
  <input type="submit" value="Send">
  <div class="wpcf7-response-output"></div>
</form>
<script>
  const form = document.querySelector('form.wpcf7-form');
  const output = form.querySelector('.wpcf7-response-output');
  function tip(field, text) {
    const span = document.createElement('span');
    span.className = 'wpcf7-not-valid-tip';
    span.textContent = text;
    field.after(span);
  }
  form.addEventListener('submit', ev => {
    ev.preventDefault();
    form.querySelectorAll('.wpcf7-not-valid-tip').forEach(el => el.remove());
    form.classList.remove('init', 'sent', 'invalid');
    let invalid = false;
    for (const name of ['your-name', 'your-email', 'your-message']) {
      const field = form.querySelector('[name="' + name + '"]');
      if (!field.value.trim()) { tip(field, 'Please fill out this field.'); invalid = true; }
    }
    const email = form.querySelector('[name="your-email"]');
    if (email.value.trim() && !/^[^@\s]+@[^@\s]+\.[^@\s]+$/.test(email.value)) {
      tip(email, 'Please enter an email address.');
      invalid = true;
    }
    setTimeout(() => {
      if (invalid) {
        form.classList.add('invalid');
        output.textContent = 'One or more fields have an error. Please check and try again.';
      } else {
        form.classList.add('sent');
        output.textContent = 'Thank you for your message. It has been sent.';
      }
    }, 300);
  });
</script>
</body>
</html>`

// NewContactServer serves ContactFormHTML at /contact/ and closes it with the test.
func NewContactServer(t testing.TB) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/contact/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(ContactFormHTML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
