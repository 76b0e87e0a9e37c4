package html

// CSRFFormScript copies the CSRF cookie into a hidden _csrf field of every
// POST form, including forms added after load.
func CSRFFormScript() string {
	return `<script>
(function () {
  function token() {
    var parts = document.cookie ? document.cookie.split(";") : [];
    for (var i = 0; i < parts.length; i++) {
      var c = parts[i].trim();
      if (c.indexOf("X-CSRF-Token=") === 0) return decodeURIComponent(c.substring(13));
    }
    return "";
  }

  function stamp(root) {
    var value = token();
    if (!value) return;
    root.querySelectorAll("form[method='post'], form[method='POST']").forEach(function (form) {
      var input = form.querySelector("input[name='_csrf']");
      if (!input) {
        input = document.createElement("input");
        input.type = "hidden";
        input.name = "_csrf";
        form.appendChild(input);
      }
      input.value = value;
    });
  }

  document.addEventListener("submit", function (e) {
    if (e.target && e.target.tagName === "FORM") stamp(e.target.parentNode || document);
    var btn = e.target.querySelector("button[type='submit']");
    if (btn) btn.disabled = true;
  }, true);

  if (document.readyState === "loading") {
    document.addEventListener("DOMContentLoaded", function () { stamp(document); });
  } else {
    stamp(document);
  }
})();
</script>`
}
